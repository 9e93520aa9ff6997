package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is swapped out in tests so nothing touches the terminal
var readPassword = term.ReadPassword

// promptPassword prints prompt to w and reads a password without echo
func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// promptNewPassword asks twice and fails when the entries differ
func promptNewPassword(w io.Writer) (string, error) {
	first, err := promptPassword(w, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := promptPassword(w, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}
