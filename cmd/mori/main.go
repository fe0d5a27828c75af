package main

import "github.com/Morteza-Rastgoo/mori-setup/src"

func main() {
	src.Execute()
}
