package main

import "github.com/drgolem/gramophone/cmd"

func main() {
	cmd.Execute()
}
