package main

import "github.com/samurmaykrr/planscope/cmd"

func main() {
	cmd.Execute()
}
