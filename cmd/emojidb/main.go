// Command emojidb provisions and drives an EmojiDB engine from the shell.
package main

func main() {
	Execute()
}
