package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"circle-search/src/clipboard"
	"circle-search/src/opener"
	"circle-search/src/singleinstance"

	"github.com/hashicorp/go-multierror"
)

// BrowserTarget opens the search link with the system URL handler.
type BrowserTarget struct {
	Open func(string) error
}

func (t BrowserTarget) OnSuccess(link string) error {
	open := t.Open
	if open == nil {
		open = opener.Open
	}
	return open(link)
}

func (BrowserTarget) OnFailure(err error) error { return nil }

type ClipboardTarget struct {
	Write func(string) error
}

func (t ClipboardTarget) OnSuccess(link string) error {
	write := t.Write
	if write == nil {
		write = clipboard.Write
	}
	return write(link)
}

func (ClipboardTarget) OnFailure(err error) error { return nil }

type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(link string) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintln(w, link)
	return err
}

func (t StdoutTarget) OnFailure(err error) error { return nil }

// DelegatedTarget answers a run-once client. In open mode the resident opens the
// link itself before replying.
type DelegatedTarget struct {
	Conn singleinstance.Conn
	Open func(string) error
}

func (t DelegatedTarget) OnSuccess(link string) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	if t.Conn.Request().Mode == singleinstance.ModeOpen {
		if err := (BrowserTarget{Open: t.Open}).OnSuccess(link); err != nil {
			return fmt.Errorf("open link: %w", err)
		}
	}
	return t.Conn.RespondSuccess(link)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	if errors.Is(err, ErrSelectionCancelled) {
		return t.Conn.RespondCancelled()
	}
	return t.Conn.RespondError(Describe(err))
}

// MultiTarget delivers to every target and combines their errors.
type MultiTarget []ResultTarget

func (m MultiTarget) OnSuccess(link string) error {
	var result *multierror.Error
	for _, t := range m {
		if err := t.OnSuccess(link); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m MultiTarget) OnFailure(err error) error {
	var result *multierror.Error
	for _, t := range m {
		if terr := t.OnFailure(err); terr != nil {
			result = multierror.Append(result, terr)
		}
	}
	return result.ErrorOrNil()
}
