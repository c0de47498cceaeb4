// logvault anonymizes application logs and archives them as encoded backups.
package main

import (
	"os"

	"github.com/V4T54L/logvault/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
