package main

import "github.com/Li-Kezhi/Exp-ReactionRateCalc/cmd"

func main() {
	cmd.Execute()
}
