// Command gotiff decodes baseline TIFF images to PNG and prints their tags.
package main

import "github.com/tingold/gotiff/internal/cli"

func main() {
	cli.Execute()
}
