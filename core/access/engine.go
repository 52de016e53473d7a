// Package access issues, redeems & exports the bulk access codes that unlock a module.
package access

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

const (
	CodeLength   = 8
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// errors
	ErrInvalidCode     = errors.New("invalid access code")
	ErrEmptyCodeExport = errors.New("no codes to export")

	// errAlreadyClaimed aborts the module write when the matched code is already the caller's.
	errAlreadyClaimed = errors.New("code already claimed by user")

	nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

	// mockable
	randReader io.Reader = rand.Reader
)

type (
	// Export is the plain-text listing of a module's codes.
	Export struct {
		Filename string
		Text     string
	}

	Stats struct {
		Total  int `json:"total"`
		Used   int `json:"used"`
		Active int `json:"active"`
	}

	Engine struct {
		modules course.Repository
		users   *user.Service
		logger  core.Logger
	}
)

func NewEngine(modules course.Repository, users *user.Service, logger core.Logger) *Engine {
	return &Engine{
		modules: modules,
		users:   users,
		logger:  logger,
	}
}

func newCode() (string, error) {
	base := big.NewInt(int64(len(codeAlphabet)))
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(randReader, base)
		if err != nil {
			return "", pkgerrors.Wrap(err, "generating access code")
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Generate appends count fresh codes to the module. Codes are not checked for collisions.
func (eng *Engine) Generate(ctx context.Context, moduleID, count int) ([]course.AccessCode, error) {
	if count < 1 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "count", Error: "count must be at least 1"})
	}

	codes := make([]course.AccessCode, count)
	for i := range codes {
		code, err := newCode()
		if err != nil {
			return nil, err
		}
		codes[i] = course.AccessCode{Code: code}
	}

	_, err := eng.modules.UpdateModule(ctx, moduleID, func(m *course.Module, _ *course.Sequence) error {
		m.BulkCodes = append(m.BulkCodes, codes...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	eng.logger.Info("access codes generated", map[string]interface{}{"module": moduleID, "count": count})
	return codes, nil
}

// Redeem unlocks the module for userID if code matches one of its codes that is unused or already
// claimed by that same user. The first such code wins; an unused one gets claimed.
func (eng *Engine) Redeem(ctx context.Context, moduleID int, code string, userID int) error {
	code = core.CleanString(code)
	if _, err := eng.users.GetByID(ctx, userID); err != nil {
		return err
	}

	var claimed bool
	_, err := eng.modules.UpdateModule(ctx, moduleID, func(m *course.Module, _ *course.Sequence) error {
		for i := range m.BulkCodes {
			c := &m.BulkCodes[i]
			if c.Code != code || (c.Used && c.UsedBy != userID) {
				continue
			}
			if c.Used {
				return errAlreadyClaimed
			}
			c.Used = true
			c.UsedBy = userID
			claimed = true
			return nil
		}
		return ErrInvalidCode
	})
	switch {
	case err == course.ErrModuleNotFound:
		return ErrInvalidCode
	case err != nil && err != errAlreadyClaimed:
		return err
	}

	if _, err = eng.users.UnlockModule(ctx, userID, moduleID); err != nil {
		return pkgerrors.Wrap(err, "unlocking module")
	}
	if claimed {
		eng.logger.Info("access code redeemed", map[string]interface{}{"module": moduleID, "user": userID})
	}
	return nil
}

// Export lists the module's codes in order, with their status.
func (eng *Engine) Export(ctx context.Context, moduleID int) (Export, error) {
	mod, err := eng.modules.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Export{}, err
	}
	if len(mod.BulkCodes) == 0 {
		return Export{}, ErrEmptyCodeExport
	}

	lines := make([]string, len(mod.BulkCodes))
	for i, c := range mod.BulkCodes {
		status := "ACTIVE"
		if c.Used {
			status = "USED"
		}
		lines[i] = c.Code + " - " + status
	}
	return Export{
		Filename: ExportFilename(mod.Title),
		Text:     fmt.Sprintf("ACCESS CODES FOR MODULE: %s\n\n", mod.Title) + strings.Join(lines, "\n"),
	}, nil
}

// ExportFilename turns a module title into `MonthCodes_<slug>.txt`.
func ExportFilename(title string) string {
	return "MonthCodes_" + strings.ToLower(nonAlnum.ReplaceAllString(title, "_")) + ".txt"
}

// RedeemStudentCode checks the legacy per-student code of a lecture. Case-insensitive; writes nothing.
func RedeemStudentCode(lec course.Lecture, userID int, code string) bool {
	stored := core.CleanString(lec.StudentCodes[userID])
	return stored != "" && strings.EqualFold(core.CleanString(code), stored)
}

// CodeStats counts a module's codes by status.
func CodeStats(mod course.Module) Stats {
	st := Stats{Total: len(mod.BulkCodes)}
	for _, c := range mod.BulkCodes {
		if c.Used {
			st.Used++
		}
	}
	st.Active = st.Total - st.Used
	return st
}
