// main.go
package main

import "hiddenParamsGo/cmd"

func main() {
	cmd.Execute()
}
