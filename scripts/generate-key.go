// Package main is a development utility for generating session cookie
// credentials. It prints a random secret and salt as ready-to-paste
// PRISM_SESSION_SECRET and PRISM_SESSION_SALT values so developers can run a
// production-shaped configuration locally without inventing key material by
// hand. Production deployments should source these from a secret manager
// instead.
package main

import (
	"encoding/base64"
	"fmt"
	"log"

	"github.com/prism-hq/prism-server/internal/crypto"
)

func main() {
	secret, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}
	salt, err := crypto.GenerateSalt(16)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Generated session credentials:")
	fmt.Println()
	fmt.Printf("PRISM_SESSION_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(secret))
	fmt.Printf("PRISM_SESSION_SALT=%s\n", base64.RawURLEncoding.EncodeToString(salt))
}
