package main

import "github.com/andresmejia3/samaritan/cmd"

func main() {
	cmd.Execute()
}
