package main

import (
	"fmt"
	"log"
	"os"

	"coinledger.backend/pkg/crypto"
)

var (
	printfFn       = fmt.Printf
	generateHashFn = generateHash
	fatalfFn       = log.Fatalf
)

// resolveToken takes the token from argv or generates a fresh one.
func resolveToken(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return crypto.GenerateRandomToken(32)
}

func generateHash(token string) (string, error) {
	return crypto.HashPassword(token)
}

func main() {
	token, err := resolveToken(os.Args[1:])
	if err != nil {
		fatalfFn("Failed to generate token: %v", err)
	}

	hash, err := generateHashFn(token)
	if err != nil {
		fatalfFn("Failed to hash token: %v", err)
	}

	printfFn("Notify token: %s\n", token)
	printfFn("Set NOTIFY_TOKEN_HASH=%s\n", hash)
}
