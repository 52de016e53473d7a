package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	_ "github.com/lib/pq"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/tests"
)

type cliFixture struct {
	cli     *commandLine
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	out     *bytes.Buffer
}

func setup(t *testing.T) cliFixture {
	logger := logsvc.NewNopLogger()

	// set up DB & repos
	db := testutil.OpenDB(t)
	usrRepo := records.NewUserRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(&core.Config{AppName: "Elimu", DefaultFromEmail: "noreply@elimu.test"}, logger)
	usrSvc := user.NewService(usrRepo, testutil.Bootstrap, testutil.NewValidator(), logger)
	out := new(bytes.Buffer)

	// start CLI
	return cliFixture{
		cli: &commandLine{
			db:      db,
			usrSvc:  usrSvc,
			codes:   access.NewEngine(records.NewModuleRepository(db), usrSvc, logger),
			mailSvc: mailSvc,
			out:     out,
		},
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		out:     out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	fx := setup(t)

	defaultRun := gooseRunFunc
	defer func() { gooseRunFunc = defaultRun }()
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	if err := fx.cli.run([]string{"admin", "migrate", "up"}); err != errNoDatabase {
		t.Fatalf("cli.run() without database error = %v, wantErr %v", err, errNoDatabase)
	}

	// sql.Open does not connect; the mocked goose never touches it
	sqlDB, err := sql.Open("postgres", "postgres://localhost/elimu_test?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()
	fx.cli.sqlDB = sqlDB

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "quiz_attempts", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, fx.cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	fx := setup(t)
	defaultRead := readPasswordFunc
	defer func() { readPasswordFunc = defaultRead }()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "jane@test.cd"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"adduser", "-email", "jane"}, extra: "pwd", wantErrStr: "invalid email"},
		{name: "student", args: []string{"adduser", "-email", "Jane@Test.cd", "-name", "Jane"}, extra: "pwd"},
		{name: "promote", args: []string{"adduser", "-email", "jane@test.cd", "-admin"}, extra: "new-pwd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, fx.cli.run(args))
		})
	}

	usr, err := fx.usrRepo.GetUserByEmail(context.Background(), "jane@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed, %v", err)
	}
	if usr.Name != "Jane" || usr.Password != "new-pwd" || !usr.IsAdmin() {
		t.Errorf("adduser = %+v; want admin Jane with the new password", usr)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	fx := setup(t)
	defaultRead := readPasswordFunc
	defer func() { readPasswordFunc = defaultRead }()

	usr := testutil.CreateUser(t, fx.usrRepo, "User", "awe@test.cd", "mdr", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.cd"}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, fx.cli.run(args))
		})
	}

	refreshedUsr, err := fx.usrRepo.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed, %v", err)
	}
	if refreshedUsr.Password != "lmao" {
		t.Errorf("password = %q; want %q", refreshedUsr.Password, "lmao")
	}
}

func Test_commandLine_codes(t *testing.T) {
	fx := setup(t)
	outFile := filepath.Join(t.TempDir(), "codes.txt")

	tests := []cliTest{
		{name: "generate: no module", args: []string{"generatecodes", "-count", "2"}, wantErr: errHelp},
		{name: "generate: no count", args: []string{"generatecodes", "-module", "1"}, wantErrStr: "count: count must be at least 1"},
		{name: "export: nothing yet", args: []string{"exportcodes", "-module", "1"}, wantErr: access.ErrEmptyCodeExport},
		{name: "generate", args: []string{"generatecodes", "-module", "1", "-count", "2"}},
		{name: "export: no module", args: []string{"exportcodes"}, wantErr: errHelp},
		{name: "export: stdout", args: []string{"exportcodes", "-module", "1"}},
		{name: "export: file & email", args: []string{"exportcodes", "-module", "1", "-out", outFile, "-email", "Boss <boss@elite.com>"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, fx.cli.run(args))
		})
	}

	lines := strings.Split(fx.out.String(), "\n")
	if len(lines) < 6 {
		t.Fatalf("output = %q; want the codes then the export", fx.out.String())
	}
	codes := lines[:2]
	wantExport := "ACCESS CODES FOR MODULE: Month 1: Introduction to Mastery\n\n" +
		codes[0] + " - ACTIVE\n" + codes[1] + " - ACTIVE"
	if !strings.Contains(fx.out.String(), wantExport+"\n") {
		t.Errorf("output = %q; want export %q", fx.out.String(), wantExport)
	}

	data, err := ioutil.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != wantExport {
		t.Errorf("file = %q; want %q", data, wantExport)
	}

	sent := fx.mailSvc.SentMessages()
	if len(sent) != 1 || sent[0].To[0].Address != "boss@elite.com" || len(sent[0].Attachments) != 1 {
		t.Fatalf("sent = %+v; want one message to boss@elite.com with the export attached", sent)
	}
	if fn := sent[0].Attachments[0].Filename; fn != "MonthCodes_month_1__introduction_to_mastery.txt" {
		t.Errorf("attachment = %q", fn)
	}
}

func Test_commandLine_reset(t *testing.T) {
	fx := setup(t)
	testutil.CreateUser(t, fx.usrRepo, "User", "awe@test.cd", "mdr", user.RoleStudent)

	if err := fx.cli.run([]string{"admin", "reset"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	users, err := fx.usrRepo.QueryAllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Email != testutil.Bootstrap.Email {
		t.Errorf("users after reset = %+v; want the seed admin only", users)
	}
}
