package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/unlock"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need storage.driver=postgres")
)

// courseReader is the part of the e-learning API the CLI reads.
type courseReader interface {
	GetCourse(ctx context.Context, token string, courseID course.ID) (course.Course, error)
	GetWatchedVideos(ctx context.Context, token string) ([]course.ID, error)
}

type commandLine struct {
	db      *sql.DB // nil unless storage.driver=postgres
	unlocks *unlock.Service
	remote  courseReader
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                  - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  purge                                   - delete expired quiz unlock records")
	_, _ = fmt.Fprintln(cli.out, "  resetunlock -user USER_ID -course ID    - forget that a user saw the quiz unlock popup")
	_, _ = fmt.Fprintln(cli.out, "  remaining -course ID                    - show a learner's remaining videos (token prompted)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetUnlockCmd := flag.NewFlagSet("resetunlock", flag.ContinueOnError)
	resetUnlockCmd.SetOutput(cli.out)
	resetUnlockUser := resetUnlockCmd.String("user", "", "The user's ID.")
	resetUnlockCourse := resetUnlockCmd.String("course", "", "The course ID.")

	remainingCmd := flag.NewFlagSet("remaining", flag.ContinueOnError)
	remainingCmd.SetOutput(cli.out)
	remainingCourse := remainingCmd.String("course", "", "The course ID. The learner's bearer token will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "purge":
		return cli.purge()
	case "resetunlock":
		if err := resetUnlockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetUnlockUser == "" || *resetUnlockCourse == "" {
			resetUnlockCmd.Usage()
			return errHelp
		}
		return cli.resetUnlock(*resetUnlockUser, course.NormalizeID(*resetUnlockCourse))
	case "remaining":
		if err := remainingCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *remainingCourse == "" {
			remainingCmd.Usage()
			return errHelp
		}
		_, _ = fmt.Fprint(cli.out, "Enter token:")
		token, err := readPasswordFunc(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(token) == 0 {
			remainingCmd.Usage()
			return errHelp
		}
		return cli.remaining(course.NormalizeID(*remainingCourse), string(token))
	default:
		cli.printUsage()
		return errHelp
	}
}
