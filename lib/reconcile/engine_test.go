// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/e3dc-control/installer/lib/clock"
	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/hostfs"
)

// applianceCatalog covers every resource kind.
func applianceCatalog() []ResourceDefinition {
	script := startScript()
	script.Required = true
	return []ResourceDefinition{
		directory("install", "/srv/e3dc", 0o755),
		configFile(),
		script,
		autostart(),
		grant(),
	}
}

// seedDriftedHost creates a host where every catalog entry needs work.
func seedDriftedHost(t *testing.T, f *fixture) {
	t.Helper()
	f.addDir(t, "/srv/e3dc", 0o700, 0, 0)
	f.addFile(t, "/srv/e3dc/config.txt", "a = 1\n", 0o664, uidAlice, gidWeb)
	f.addFile(t, "/srv/e3dc/E3DC.sh", "#!/bin/sh\n", 0o640, uidPi, gidPi)
	f.addDir(t, "/etc/sudoers.d", 0o750, 0, 0)
	if err := f.crontabs.Write(context.Background(), "pi", crontab.Parse("@hourly /usr/local/bin/a\n")); err != nil {
		t.Fatal(err)
	}
}

func TestRunConvergesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedDriftedHost(t, f)
	engine := f.engine(applianceCatalog(), AlwaysConfirm)
	ctx := context.Background()

	first, err := engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Status != StatusCorrected {
		for _, outcome := range first.Outcomes {
			t.Logf("%s %s applied=%v err=%v", outcome.ResourceID, outcome.IssueKind, outcome.Applied, outcome.Err)
		}
		t.Fatalf("first Run status = %s, want corrected", first.Status)
	}
	if first.Attempted != len(first.Issues) || first.Corrected != first.Attempted || first.Failed != 0 {
		t.Errorf("totals = %d/%d/%d for %d issues", first.Attempted, first.Corrected, first.Failed, len(first.Issues))
	}
	if want := fmt.Sprintf("fixed %d/%d", first.Attempted, first.Attempted); first.Summary() != want {
		t.Errorf("Summary() = %q, want %q", first.Summary(), want)
	}

	crontabBefore := f.crontabLines(t, "pi")
	second, err := engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Status != StatusClean || len(second.Issues) != 0 || len(second.Outcomes) != 0 {
		t.Errorf("second Run = %+v, want clean with no outcomes", second)
	}
	if second.Summary() != "nothing to fix" {
		t.Errorf("Summary() = %q", second.Summary())
	}
	if after := f.crontabLines(t, "pi"); !slices.Equal(after, crontabBefore) {
		t.Errorf("clean run changed crontab: %q -> %q", crontabBefore, after)
	}
}

func TestRunCleanHostNeverAsks(t *testing.T) {
	f := newFixture(t)
	engine := f.engine(nil, ConfirmFunc(func(context.Context, []Issue) (bool, error) {
		t.Error("confirmer called on a clean host")
		return false, nil
	}))
	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusClean {
		t.Errorf("status = %s, want clean", report.Status)
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	f := newFixture(t)
	var catalog []ResourceDefinition
	for index := 1; index <= 5; index++ {
		catalog = append(catalog, directory(fmt.Sprintf("dir-%d", index), fmt.Sprintf("/srv/d%d", index), 0o755))
	}
	f.fs.FailOn(hostfs.OpMkdir, "/srv/d3", fs.ErrPermission)

	report, err := f.engine(catalog, AlwaysConfirm).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Attempted != 5 || report.Corrected != 4 || report.Failed != 1 {
		t.Errorf("totals = attempted %d corrected %d failed %d, want 5/4/1", report.Attempted, report.Corrected, report.Failed)
	}
	if report.Status != StatusPartial {
		t.Errorf("status = %s, want partial", report.Status)
	}
	if report.Summary() != "fixed 4/5 (see above for failures)" {
		t.Errorf("Summary() = %q", report.Summary())
	}
	for index, outcome := range report.Outcomes {
		wantApplied := index != 2
		if outcome.Applied != wantApplied {
			t.Errorf("outcome %d (%s) applied = %v, want %v", index, outcome.ResourceID, outcome.Applied, wantApplied)
		}
	}
	if !IsPermission(report.Outcomes[2].Err) {
		t.Errorf("failure not classified as permission: %v", report.Outcomes[2].Err)
	}
	for _, path := range []string{"/srv/d1", "/srv/d2", "/srv/d4", "/srv/d5"} {
		if _, err := f.fs.Stat(path); err != nil {
			t.Errorf("%s not created: %v", path, err)
		}
	}
}

func TestRunDeclined(t *testing.T) {
	tests := []struct {
		name      string
		confirmer Confirmer
	}{
		{"false", ConfirmFunc(func(context.Context, []Issue) (bool, error) { return false, nil })},
		{"sentinel", ConfirmFunc(func(context.Context, []Issue) (bool, error) { return false, ErrConfirmationDeclined })},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)

			report, err := f.engine([]ResourceDefinition{configFile()}, test.confirmer).Run(context.Background(), Options{})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Status != StatusSkipped || report.Summary() != "skipped: no changes made" {
				t.Errorf("report = %s %q", report.Status, report.Summary())
			}
			if len(report.Issues) != 2 || len(report.Outcomes) != 0 {
				t.Errorf("issues %d outcomes %d, want 2 and 0", len(report.Issues), len(report.Outcomes))
			}
			info := f.stat(t, "/srv/e3dc/config.txt")
			if info.UID != uidAlice || info.Perm() != 0o664 {
				t.Errorf("declined run changed the file: %+v", info)
			}
		})
	}
}

func TestRunCancelledAtGate(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)

	ctx, cancel := context.WithCancel(context.Background())
	confirmer := ConfirmFunc(func(ctx context.Context, _ []Issue) (bool, error) {
		cancel()
		return true, nil
	})
	report, err := f.engine([]ResourceDefinition{configFile()}, confirmer).Run(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if report.Status != StatusSkipped || len(report.Outcomes) != 0 {
		t.Errorf("report = %+v, want skipped without outcomes", report)
	}
	if info := f.stat(t, "/srv/e3dc/config.txt"); info.UID != uidAlice {
		t.Error("cancelled run changed ownership")
	}
}

func TestRunConfirmerError(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)
	broken := errors.New("stdin closed")

	report, err := f.engine([]ResourceDefinition{configFile()}, ConfirmFunc(func(context.Context, []Issue) (bool, error) {
		return false, broken
	})).Run(context.Background(), Options{})
	if !errors.Is(err, broken) {
		t.Fatalf("Run error = %v, want %v", err, broken)
	}
	if report.Status != StatusSkipped {
		t.Errorf("status = %s, want skipped", report.Status)
	}
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)
	engine := f.engine([]ResourceDefinition{configFile()}, ConfirmFunc(func(context.Context, []Issue) (bool, error) {
		t.Error("confirmer called during dry run")
		return true, nil
	}))

	report, err := engine.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusPending || report.Summary() != "2 issues found" {
		t.Errorf("report = %s %q", report.Status, report.Summary())
	}
	if info := f.stat(t, "/srv/e3dc/config.txt"); info.UID != uidAlice {
		t.Error("dry run changed ownership")
	}
}

func TestConfirmerSeesAllIssuesBeforeChanges(t *testing.T) {
	f := newFixture(t)
	seedDriftedHost(t, f)
	catalog := applianceCatalog()

	var seen []Issue
	confirmer := ConfirmFunc(func(_ context.Context, issues []Issue) (bool, error) {
		seen = issues
		// Nothing may have changed yet.
		if info := f.stat(t, "/srv/e3dc/config.txt"); info.UID != uidAlice {
			t.Error("host changed before confirmation")
		}
		return true, nil
	})
	report, err := f.engine(catalog, confirmer).Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != len(report.Issues) {
		t.Errorf("confirmer saw %d issues, report has %d", len(seen), len(report.Issues))
	}
}

func TestDiffCompleteness(t *testing.T) {
	f := newFixture(t)
	seedDriftedHost(t, f)

	report, err := f.engine(applianceCatalog(), nil).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string][]IssueKind)
	for _, issue := range report.Issues {
		got[issue.ResourceID] = append(got[issue.ResourceID], issue.Kind)
	}
	want := map[string][]IssueKind{
		"install":          {IssueOwnerMismatch, IssueGroupMismatch, IssueModeMismatch},
		"config":           {IssueOwnerMismatch, IssueModeMismatch},
		"start-script":     {IssueModeMismatch, IssueNotExecutable},
		"autostart":        {IssueMissing},
		"sudo-web-restart": {IssueMissing},
	}
	for id, kinds := range want {
		if !slices.Equal(got[id], kinds) {
			t.Errorf("%s: kinds = %v, want %v", id, got[id], kinds)
		}
	}
	if len(got) != len(want) {
		t.Errorf("issues for %d resources, want %d: %v", len(got), len(want), got)
	}
}

func TestRunCrontabInsertPreservesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := []string{"@hourly /a", "*/5 * * * * /b", "0 3 * * 0 /c"}
	if err := f.crontabs.Write(ctx, "pi", crontab.Parse(strings.Join(original, "\n"))); err != nil {
		t.Fatal(err)
	}
	engine := f.engine([]ResourceDefinition{autostart()}, AlwaysConfirm)

	for run := 1; run <= 2; run++ {
		if _, err := engine.Run(ctx, Options{}); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		lines := f.crontabLines(t, "pi")
		if len(lines) != 4 || !slices.Equal(lines[:3], original) || lines[3] != autostartTask.Line() {
			t.Fatalf("run %d: crontab = %q", run, lines)
		}
	}
}

func TestRunInvalidCatalog(t *testing.T) {
	f := newFixture(t)
	catalog := []ResourceDefinition{configFile(), configFile()}
	report, err := f.engine(catalog, AlwaysConfirm).Run(context.Background(), Options{})
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Run error = %v, want ErrInvalidCatalog", err)
	}
	if report.Status != StatusSkipped {
		t.Errorf("status = %q, want skipped", report.Status)
	}
}

func TestRunCancelledDuringInspection(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := f.engine([]ResourceDefinition{configFile()}, ConfirmFunc(func(context.Context, []Issue) (bool, error) {
		t.Error("confirmer called after cancellation")
		return true, nil
	}))
	for name, run := range map[string]func() (Report, error){
		"Run":   func() (Report, error) { return engine.Run(ctx, Options{}) },
		"Check": func() (Report, error) { return engine.Check(ctx) },
	} {
		report, err := run()
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s error = %v, want context.Canceled", name, err)
		}
		if report.Status != StatusSkipped || report.FinishedAt.IsZero() {
			t.Errorf("%s report = %s finished %v, want skipped and finished", name, report.Status, report.FinishedAt)
		}
	}
	if info := f.stat(t, "/srv/e3dc/config.txt"); info.UID != uidAlice {
		t.Error("cancelled run changed ownership")
	}
}

func TestRunReportTimesAndLogs(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o664, uidAlice, gidWeb)
	f.fs.FailOn(hostfs.OpChmod, "/srv/e3dc/config.txt", fs.ErrPermission)

	fake := clock.Fake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	var buffer bytes.Buffer
	engine := f.engine([]ResourceDefinition{configFile()}, AlwaysConfirm)
	engine.Clock = fake
	engine.Logger = slog.New(slog.NewJSONHandler(&buffer, nil))

	report, err := engine.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !report.StartedAt.Equal(fake.Now()) || !report.FinishedAt.Equal(fake.Now()) {
		t.Errorf("times = %v..%v, want %v", report.StartedAt, report.FinishedAt, fake.Now())
	}

	var messages []string
	for _, line := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		messages = append(messages, record["msg"].(string))
	}
	want := []string{"issue found", "issue found", "corrected", "correction failed", "reconciliation finished"}
	if !slices.Equal(messages, want) {
		t.Errorf("log messages = %q, want %q", messages, want)
	}
}

func TestReportJSON(t *testing.T) {
	report := Report{
		Status: StatusPartial,
		Issues: []Issue{{ResourceID: "config", Kind: IssueModeMismatch, Expected: "0644", Observed: "0664"}},
		Outcomes: []CorrectionOutcome{{
			ResourceID: "config",
			IssueKind:  IssueModeMismatch,
			Err:        &CorrectionError{ResourceID: "config", IssueKind: IssueModeMismatch, Err: fs.ErrPermission},
		}},
		Attempted: 1,
		Failed:    1,
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, fragment := range []string{`"status":"partial"`, `"kind":"mode-mismatch"`, `"applied":false`, `"error":"fixing mode-mismatch on config: permission denied"`} {
		if !strings.Contains(text, fragment) {
			t.Errorf("JSON %s missing %s", text, fragment)
		}
	}
}
