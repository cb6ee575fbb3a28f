// Command hashpass prints the bcrypt hash of a household passphrase, ready for
// FOYER_AUTH_PASSPHRASE_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mmynk/foyer/internal/auth"
)

func main() {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "read passphrase:", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassphrase(strings.TrimRight(line, "\r\n"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
