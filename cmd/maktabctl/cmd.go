package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errPasswordMismatch = errors.New("passwords do not match")
	errEmptyPassword    = errors.New("password must not be empty")
)

type userAdmin interface {
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	ResetPassword(ctx context.Context, username, password string) error
}

type rollRepairer interface {
	RepairRolls(ctx context.Context, classID string) (int, error)
}

type migrateFunc func(ctx context.Context, command string, args ...string) error

type commandLine struct {
	users   userAdmin
	rolls   rollRepairer
	migrate migrateFunc
	out     io.Writer
	close   func()
}

// newRootCmd builds the command tree. setup fills cli before any subcommand runs;
// it may be nil when cli is already wired.
func newRootCmd(cli *commandLine, setup func(*commandLine) error) *cobra.Command {
	root := &cobra.Command{
		Use:           "maktabctl",
		Short:         "Administrative tasks for the maktab API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if setup == nil {
				return nil
			}
			return setup(cli)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if cli.close != nil {
				cli.close()
			}
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.createUserCmd(),
		cli.resetPasswordCmd(),
		cli.generateRollsCmd(),
	)
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run schema migrations (up, down, status, version, redo, reset, up-to, down-to)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.migrate(cmd.Context(), args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "migrate %s: done\n", args[0])
			return nil
		},
	}
}

func (cli *commandLine) createUserCmd() *cobra.Command {
	var username, fullName, role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account, the password is prompted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if fullName == "" {
				fullName = username
			}
			user, err := cli.users.Create(cmd.Context(), service.CreateUserRequest{
				Username: username,
				FullName: fullName,
				Role:     models.UserRole(strings.ToUpper(role)),
				Password: pwd,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "created %s user %q (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	cmd.Flags().StringVar(&fullName, "name", "", "display name, defaults to the username")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or TEACHER")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset an account password, the new password is prompted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if err := cli.users.ResetPassword(cmd.Context(), username, pwd); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "password updated for %q\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) generateRollsCmd() *cobra.Command {
	var classIDs []string
	cmd := &cobra.Command{
		Use:   "generate-rolls",
		Short: "Reassign roll numbers that are outside their class band or duplicated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, id := range classIDs {
				n, err := cli.rolls.RepairRolls(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("class %s: %w", id, err)
				}
				fmt.Fprintf(cli.out, "class %s: %d roll numbers reassigned\n", id, n)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&classIDs, "class", nil, "class id, repeatable")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password: ")
	first, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errEmptyPassword
	}
	fmt.Fprint(cli.out, "Confirm password: ")
	second, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
