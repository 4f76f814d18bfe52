package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/config"
	"github.com/Dan9191/loanflow/internal/database"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/spf13/cobra"
)

var hashCost int

// hashPasswordCmd prints a bcrypt hash, for seeding accounts by hand
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash of a password (reads stdin when no argument)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := passwordArg(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		hash, err := auth.NewBcryptHasher(hashCost).Hash(raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var (
	newUsername string
	newRole     string
)

// createUserCmd seeds an account with any role; an existing username is left untouched.
// The password is read from stdin so it never appears in argv.
var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account with the given role if it does not exist (password on stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := models.ParseRole(newRole)
		if !ok {
			return fmt.Errorf("unknown role %q", newRole)
		}
		if strings.TrimSpace(newUsername) == "" {
			return errors.New("--username is required")
		}
		password, err := passwordArg(nil, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, err := config.NewConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		db, err := database.Open(cmd.Context(), cfg.DBConn)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := repository.NewRepository(db)

		hash, err := auth.NewBcryptHasher(cfg.BcryptCost).Hash(password)
		if err != nil {
			return err
		}
		user := &models.User{Username: strings.TrimSpace(newUsername), PasswordHash: hash, Role: role, Active: true}
		err = repo.CreateUser(cmd.Context(), user)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			logger.Infof("User %s already exists", user.Username)
			return nil
		case err != nil:
			return err
		}
		logger.Infof("User created: %s (%s)", user.Username, user.Role)
		return nil
	},
}

func passwordArg(args []string, in io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("empty password")
	}
	return line, nil
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 10, "bcrypt cost")

	createUserCmd.Flags().StringVar(&newUsername, "username", "", "account name")
	createUserCmd.Flags().StringVar(&newRole, "role", string(models.RoleCustomer), "CUSTOMER, ANALYST or ADMIN")

	rootCmd.AddCommand(hashPasswordCmd, createUserCmd)
}
