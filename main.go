package main

import "github.com/ValentinKolb/bronzeKV/cmd"

func main() {
	cmd.Execute()
}
