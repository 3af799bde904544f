package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"longbox/internal/approval"
	"longbox/internal/logging"
)

type enrichOptions struct {
	auto       bool
	llmCleanup bool
	apply      bool
	jsonOutput bool
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var opts enrichOptions

	cmd := &cobra.Command{
		Use:   "enrich [paths...]",
		Short: "Match archives against ComicVine and review proposed metadata",
		Long: `Scan the given archives or directories (the library directory by default),
group them by series and review the ComicVine matches. With --auto the top
candidate is approved when its confidence reaches the auto-approve threshold
and the group is skipped otherwise. --apply writes approved fields into each
archive's ComicInfo.xml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !opts.auto && !isInteractive(cmd.InOrStdin()) {
				return errors.New("stdin is not a terminal; rerun with --auto for unattended review")
			}
			a, err := newApp(cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return runEnrich(cmd, a, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Approve confident series matches without prompting")
	cmd.Flags().BoolVar(&opts.llmCleanup, "llm-cleanup", false, "Clean noisy filenames with the configured LLM before grouping")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write approved metadata into the archives")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the final session as JSON")
	return cmd
}

func runEnrich(cmd *cobra.Command, a *app, targets []string, opts enrichOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ids, err := a.scan(ctx, targets)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	session, err := a.engine.CreateSessionWithProgress(ctx, ids, approval.SessionOptions{UseLLMCleanup: opts.llmCleanup},
		func(message, detail string) {
			if detail != "" {
				fmt.Fprintf(stderr, "%s: %s\n", message, detail)
				return
			}
			fmt.Fprintln(stderr, message)
		})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.engine.DeleteSession(context.WithoutCancel(ctx), session.ID); err != nil {
			a.logger.Debug("session not deleted", logging.String(logging.FieldSessionID, session.ID), logging.Error(err))
		}
	}()
	fmt.Fprintf(stderr, "Session %s: %d files in %d series groups (expires %s)\n",
		session.ID, len(session.FileIDs), len(session.SeriesGroups), humanize.Time(session.ExpiresAt))

	reviewer := seriesReviewer{
		engine:    a.engine,
		in:        bufio.NewScanner(cmd.InOrStdin()),
		out:       cmd.OutOrStdout(),
		auto:      opts.auto,
		threshold: a.engine.AutoApproveThreshold(),
	}
	session, err = reviewer.review(ctx, session)
	if err != nil {
		return err
	}

	if !opts.jsonOutput {
		fmt.Fprintln(cmd.OutOrStdout(), renderFileChanges(session))
	}
	if opts.apply {
		result, err := applyLocked(ctx, a, session.ID)
		if err != nil {
			if notifyErr := a.notifier.NotifyError(ctx, err, "apply"); notifyErr != nil {
				a.logger.Warn("apply failure notification failed", logging.Error(notifyErr))
			}
			return err
		}
		if !opts.jsonOutput {
			printApplyResult(cmd.OutOrStdout(), result)
		}
		if session, err = a.engine.GetSession(ctx, session.ID); err != nil {
			return err
		}
	}
	if opts.jsonOutput {
		return writeJSON(cmd, session)
	}
	return nil
}

// applyLocked holds the library write lock for the duration of the apply so
// two invocations never rewrite the same archives concurrently.
func applyLocked(ctx context.Context, a *app, sessionID string) (*approval.ApplyResult, error) {
	lock := flock.New(a.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire apply lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another longbox apply is running (lock %s)", a.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("release apply lock", logging.Error(err))
		}
	}()

	started := time.Now()
	result, err := a.engine.ApplyChanges(ctx, sessionID)
	if err != nil {
		return result, err
	}
	if err := a.notifier.NotifyApplyCompleted(ctx, *result, time.Since(started)); err != nil {
		logging.WarnWithContext(a.logger, "apply notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push summary was sent"),
		)
	}
	return result, nil
}

type seriesReviewer struct {
	engine    *approval.Engine
	in        *bufio.Scanner
	out       io.Writer
	auto      bool
	threshold float64
}

func (r seriesReviewer) review(ctx context.Context, session *approval.Session) (*approval.Session, error) {
	var err error
	for session.Status == approval.StatusSeriesReview {
		group := session.CurrentGroup()
		if group == nil {
			return nil, errors.New("series review has no current group")
		}
		if r.auto {
			session, err = r.autoDecide(ctx, session, group)
		} else {
			session, err = r.prompt(ctx, session, group)
		}
		if err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (r seriesReviewer) autoDecide(ctx context.Context, session *approval.Session, group *approval.SeriesGroup) (*approval.Session, error) {
	if len(group.SearchResults) > 0 && group.SearchResults[0].Confidence >= r.threshold {
		top := group.SearchResults[0]
		fmt.Fprintf(r.out, "%s -> %s\n", group.DisplayName, describeCandidate(top))
		return r.engine.ApproveSeries(ctx, session.ID, group.ID, top.ID, "")
	}
	fmt.Fprintf(r.out, "%s -> skipped (no confident match)\n", group.DisplayName)
	return r.engine.SkipSeries(ctx, session.ID)
}

func (r seriesReviewer) prompt(ctx context.Context, session *approval.Session, group *approval.SeriesGroup) (*approval.Session, error) {
	fmt.Fprintf(r.out, "\nSeries %d of %d: %s (%d files)\n",
		session.CurrentSeriesIndex+1, len(session.SeriesGroups), group.DisplayName, len(group.FileIDs))
	fmt.Fprintln(r.out, renderCandidates(group))
	fmt.Fprint(r.out, "Pick a number, s to skip, /text to search again, q to quit: ")
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("input closed during series review")
	}
	answer := strings.TrimSpace(r.in.Text())
	switch {
	case answer == "q":
		return nil, context.Canceled
	case answer == "s" || answer == "":
		return r.engine.SkipSeries(ctx, session.ID)
	case strings.HasPrefix(answer, "/"):
		return r.engine.SearchSeriesCustom(ctx, session.ID, strings.TrimPrefix(answer, "/"))
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(group.SearchResults) {
		fmt.Fprintf(r.out, "%q is not a listed choice\n", answer)
		return session, nil
	}
	return r.engine.ApproveSeries(ctx, session.ID, group.ID, group.SearchResults[n-1].ID, "")
}

func describeCandidate(c approval.CandidateSeries) string {
	parts := []string{c.Name}
	if c.Year > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", c.Year))
	}
	if c.Publisher != "" {
		parts = append(parts, c.Publisher)
	}
	return fmt.Sprintf("%s [%.0f%%]", strings.Join(parts, " "), c.Confidence*100)
}

func renderCandidates(group *approval.SeriesGroup) string {
	if len(group.SearchResults) == 0 {
		return "No candidates found."
	}
	rows := make([][]string, 0, len(group.SearchResults))
	for i, c := range group.SearchResults {
		year := ""
		if c.Year > 0 {
			year = strconv.Itoa(c.Year)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Name,
			year,
			c.Publisher,
			humanize.Comma(int64(c.IssueCount)),
			fmt.Sprintf("%.0f%%", c.Confidence*100),
		})
	}
	return renderTable(
		[]string{"#", "Series", "Year", "Publisher", "Issues", "Confidence"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight},
	)
}

func renderFileChanges(session *approval.Session) string {
	if len(session.FileChanges) == 0 {
		return "No file changes."
	}
	rows := make([][]string, 0, len(session.FileChanges))
	for _, change := range session.FileChanges {
		issue := ""
		if change.MatchedIssue != nil {
			issue = "#" + change.MatchedIssue.Number
			if change.MatchedIssue.Title != "" {
				issue += " " + change.MatchedIssue.Title
			}
		}
		approved := make([]string, 0, len(change.Fields))
		for name := range change.ApprovedFields() {
			approved = append(approved, string(name))
		}
		sort.Strings(approved)
		rename := ""
		if change.RenamePreview != nil && *change.RenamePreview != change.Filename {
			rename = *change.RenamePreview
		}
		rows = append(rows, []string{
			change.Filename,
			string(change.Status),
			issue,
			strings.Join(approved, ", "),
			rename,
		})
	}
	return renderTable(
		[]string{"File", "Status", "Issue", "Approved fields", "Rename preview"},
		rows,
		nil,
	)
}

func printApplyResult(out io.Writer, result *approval.ApplyResult) {
	fmt.Fprintf(out, "Applied: %s succeeded, %s failed, %s skipped\n",
		humanize.Comma(int64(result.Succeeded)),
		humanize.Comma(int64(result.Failed)),
		humanize.Comma(int64(result.Skipped)),
	)
	for _, failure := range result.Errors {
		fmt.Fprintf(out, "  %s: %s\n", failure.FileID, failure.Error)
	}
}
