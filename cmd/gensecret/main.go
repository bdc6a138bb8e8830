// Command gensecret prints a random hex value suitable for SECRET_KEY
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// 32 bytes gives a 256 bit key, plenty for HMAC signing
const defaultKeyBytes = 32

func main() {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	size := fs.IntP("bytes", "b", defaultKeyBytes, "Key length in bytes")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Printf("error while parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *size < 16 {
		fmt.Printf("key of %d bytes is too weak, use at least 16\n", *size)
		os.Exit(1)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		fmt.Printf("error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
