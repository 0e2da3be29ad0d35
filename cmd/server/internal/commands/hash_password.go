package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfeidau/taskbook/internal/bootstrap"
	"golang.org/x/crypto/bcrypt"
)

type HashPasswordCmd struct {
	Password string `arg:"" optional:"" help:"password to hash, read from stdin when omitted"`
	Cost     int    `help:"bcrypt cost" default:"10"`
}

func (c *HashPasswordCmd) Run() error {
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	password := c.Password
	if password == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(string(data), "\r\n")
	}

	hash, err := bootstrap.HashPassword(password, c.Cost)
	if err != nil {
		return err
	}

	fmt.Println(hash)
	return nil
}
