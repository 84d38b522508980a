package main

import "github.com/lumapost/ms-go-mailer/cmd"

func main() {
	cmd.Execute()
}
