package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
)

type fakeUsers struct {
	created []service.CreateUserRequest
	resets  map[string]string
}

func (f *fakeUsers) Create(_ context.Context, req service.CreateUserRequest) (*models.User, error) {
	f.created = append(f.created, req)
	return &models.User{ID: "u-1", Username: req.Username, Role: req.Role}, nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, username, password string) error {
	if username == "ghost" {
		return errors.New("user not found")
	}
	f.resets[username] = password
	return nil
}

type fakeRolls map[string]int

func (f fakeRolls) RepairRolls(_ context.Context, classID string) (int, error) {
	n, ok := f[classID]
	if !ok {
		return 0, errors.New("class not found")
	}
	return n, nil
}

type migrateCall struct {
	command string
	args    []string
}

func setup(t *testing.T, passwords ...string) (*commandLine, *fakeUsers, *[]migrateCall, *bytes.Buffer) {
	t.Helper()
	prev := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = prev })
	readPasswordFunc = func(int) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, errors.New("no input")
		}
		pwd := passwords[0]
		passwords = passwords[1:]
		return []byte(pwd), nil
	}

	users := &fakeUsers{resets: map[string]string{}}
	calls := &[]migrateCall{}
	out := &bytes.Buffer{}
	cli := &commandLine{
		users: users,
		rolls: fakeRolls{"c1": 2, "c2": 0},
		migrate: func(_ context.Context, command string, args ...string) error {
			if command == "lol" {
				return errors.New(`"lol": no such command`)
			}
			*calls = append(*calls, migrateCall{command: command, args: args})
			return nil
		},
		out: out,
	}
	return cli, users, calls, out
}

func run(cli *commandLine, args ...string) error {
	root := newRootCmd(cli, nil)
	root.SetArgs(args)
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.Execute()
}

func TestMigrate(t *testing.T) {
	cli, _, calls, out := setup(t)

	require.NoError(t, run(cli, "migrate", "up"))
	require.NoError(t, run(cli, "migrate", "down-to", "1"))
	assert.Equal(t, []migrateCall{{command: "up", args: []string{}}, {command: "down-to", args: []string{"1"}}}, *calls)
	assert.Contains(t, out.String(), "migrate up: done")

	assert.EqualError(t, run(cli, "migrate", "lol"), `"lol": no such command`)
	assert.Error(t, run(cli, "migrate"))
}

func TestCreateUser(t *testing.T) {
	cli, users, _, out := setup(t, "secret123", "secret123")

	require.NoError(t, run(cli, "create-user", "-u", "ustadh", "--role", "teacher"))
	require.Len(t, users.created, 1)
	assert.Equal(t, service.CreateUserRequest{Username: "ustadh", FullName: "ustadh", Role: models.RoleTeacher, Password: "secret123"}, users.created[0])
	assert.Contains(t, out.String(), `created TEACHER user "ustadh" (u-1)`)

	assert.Error(t, run(cli, "create-user"), "username is required")
}

func TestCreateUserPasswordPrompt(t *testing.T) {
	cli, users, _, _ := setup(t, "secret123", "other")
	assert.ErrorIs(t, run(cli, "create-user", "-u", "admin"), errPasswordMismatch)

	cli, _, _, _ = setup(t, "")
	assert.ErrorIs(t, run(cli, "create-user", "-u", "admin"), errEmptyPassword)
	assert.Empty(t, users.created)
}

func TestResetPassword(t *testing.T) {
	cli, users, _, out := setup(t, "newpass1", "newpass1", "x", "x")

	require.NoError(t, run(cli, "reset-password", "--username", "admin"))
	assert.Equal(t, "newpass1", users.resets["admin"])
	assert.Contains(t, out.String(), `password updated for "admin"`)

	assert.EqualError(t, run(cli, "reset-password", "-u", "ghost"), "user not found")
}

func TestGenerateRolls(t *testing.T) {
	cli, _, _, out := setup(t)

	require.NoError(t, run(cli, "generate-rolls", "--class", "c1", "--class", "c2"))
	assert.Contains(t, out.String(), "class c1: 2 roll numbers reassigned")
	assert.Contains(t, out.String(), "class c2: 0 roll numbers reassigned")

	assert.EqualError(t, run(cli, "generate-rolls", "--class", "missing"), "class missing: class not found")
	assert.Error(t, run(cli, "generate-rolls"))
}

func TestSetupRunsBeforeCommands(t *testing.T) {
	cli, _, _, _ := setup(t)
	closed := false
	cli.close = func() { closed = true }
	ran := false
	root := newRootCmd(cli, func(*commandLine) error { ran = true; return nil })
	root.SetArgs([]string{"generate-rolls", "--class", "c1"})
	require.NoError(t, root.Execute())
	assert.True(t, ran)
	assert.True(t, closed)

	root = newRootCmd(cli, func(*commandLine) error { return errors.New("no database") })
	root.SetArgs([]string{"migrate", "up"})
	assert.EqualError(t, root.Execute(), "no database")
}
