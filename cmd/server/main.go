package main

import "github.com/jo-hoe/recipe-app/internal/cli"

func main() {
	cli.Execute()
}
