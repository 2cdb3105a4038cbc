package main

import "github.com/emprendyup/ms-go-reconciler/cmd"

func main() {
	cmd.Execute()
}
