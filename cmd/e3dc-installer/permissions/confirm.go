// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/e3dc-control/installer/lib/reconcile"
)

// affirmative answers accept the prompt. The German forms keep
// muscle memory from earlier installer releases working.
var affirmative = map[string]bool{"j": true, "ja": true, "y": true, "yes": true}

// presenter shows the issue list before corrections start and,
// unless approve is set, asks the operator to confirm on in.
type presenter struct {
	checklist *checklist
	in        io.Reader
	approve   bool

	// shown is set once the issues have been printed.
	shown bool

	// reader wraps in on first use so buffered input survives
	// between prompts.
	reader *bufio.Reader
}

func (p *presenter) Confirm(ctx context.Context, issues []reconcile.Issue) (bool, error) {
	p.checklist.issues(issues, labelIssue)
	p.shown = true
	if p.approve {
		return true, nil
	}

	p.checklist.blank()
	fmt.Fprintf(p.checklist.w, "Apply %d correction(s)? [j/N] ", len(issues))

	if p.reader == nil {
		p.reader = bufio.NewReader(p.in)
	}
	// A read abandoned on cancellation stays blocked until input
	// arrives. The installer prompts once per process, so the
	// goroutine ends with it.
	answer := make(chan string, 1)
	go func() {
		line, _ := p.reader.ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.checklist.w)
		return false, ctx.Err()
	case line := <-answer:
		if !affirmative[strings.ToLower(strings.TrimSpace(line))] {
			return false, reconcile.ErrConfirmationDeclined
		}
		return true, nil
	}
}
