package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"net/mail"
	"syscall"

	"github.com/pressly/goose/v3"
	"golang.org/x/term"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/records"
)

var (
	// mockable
	readPasswordFunc = term.ReadPassword
	gooseRunFunc     = goose.Run

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs the postgres store engine")
)

type commandLine struct {
	db      *records.DB
	sqlDB   *sql.DB // nil unless the store engine is postgres
	usrSvc  *user.Service
	codes   *access.Engine
	mailSvc core.EmailService
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL [-name NAME] [-admin] - add a user, or update the one holding EMAIL")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  generatecodes -module ID -count N - generate access codes for a module")
	fmt.Fprintln(cli.out, "  exportcodes -module ID [-out FILE] [-email EMAIL] - export a module's access codes")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command")
	fmt.Fprintln(cli.out, "  reset - wipe all users & modules, back to the seed data")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	generateCodesCmd := flag.NewFlagSet("generatecodes", flag.ExitOnError)
	generateCodesModule := generateCodesCmd.Int("module", 0, "The module ID.")
	generateCodesCount := generateCodesCmd.Int("count", 0, "How many codes to generate.")

	exportCodesCmd := flag.NewFlagSet("exportcodes", flag.ExitOnError)
	exportCodesModule := exportCodesCmd.Int("module", 0, "The module ID.")
	exportCodesOut := exportCodesCmd.String("out", "", "Write the export to this file instead of stdout.")
	exportCodesEmail := exportCodesCmd.String("email", "", "Email the export to this address.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "generatecodes":
		if err := generateCodesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *generateCodesModule == 0 {
			generateCodesCmd.Usage()
			return errHelp
		}
		return cli.generateCodes(*generateCodesModule, *generateCodesCount)

	case "exportcodes":
		if err := exportCodesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportCodesModule == 0 {
			exportCodesCmd.Usage()
			return errHelp
		}
		return cli.exportCodes(*exportCodesModule, *exportCodesOut, *exportCodesEmail)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "reset":
		return cli.db.Reset(context.Background())

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return core.CleanString(string(pwd)), nil
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	_, err := cli.usrSvc.AddUser(context.Background(), name, email, pwd, isAdmin)
	return err
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	_, err := cli.usrSvc.ResetPassword(context.Background(), email, pwd)
	return err
}

func (cli *commandLine) generateCodes(moduleID, count int) error {
	codes, err := cli.codes.Generate(context.Background(), moduleID, count)
	if err != nil {
		return err
	}
	for _, c := range codes {
		fmt.Fprintln(cli.out, c.Code)
	}
	return nil
}

// exportCodes prints the export unless it is written to a file or emailed.
func (cli *commandLine) exportCodes(moduleID int, out, email string) error {
	exp, err := cli.codes.Export(context.Background(), moduleID)
	if err != nil {
		return err
	}

	if out == "" && email == "" {
		fmt.Fprintln(cli.out, exp.Text)
		return nil
	}
	if out != "" {
		if err = ioutil.WriteFile(out, []byte(exp.Text), 0644); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "codes written to %s\n", out)
	}
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return err
		}
		msg := &core.EmailMessage{
			To:      []mail.Address{*addr},
			Subject: "Access codes: " + exp.Filename,
			BodyStr: "Please find the module's access codes attached.",
		}
		msg.Attach([]byte(exp.Text), exp.Filename, "text/plain; charset=UTF-8")
		cli.mailSvc.SendMessages(msg)
		if w, ok := cli.mailSvc.(interface{ Wait() }); ok {
			w.Wait()
		}
		fmt.Fprintf(cli.out, "codes sent to %s\n", addr.Address)
	}
	return nil
}

func (cli *commandLine) migrate(args []string) error {
	if cli.sqlDB == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.sqlDB, database.MigrationsDir, arguments...)
}
