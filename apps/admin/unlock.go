package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/coursetrack/core/course"
)

func (cli *commandLine) purge() error {
	n, err := cli.unlocks.PurgeExpired(context.Background())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "purged %d expired quiz unlock records\n", n)
	return nil
}

func (cli *commandLine) resetUnlock(userID string, courseID course.ID) error {
	if err := cli.unlocks.Reset(context.Background(), userID, courseID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "quiz unlock reset for user %s, course %s\n", userID, courseID)
	return nil
}

// remaining prints the learner's progress and a unified diff from the course videos
// to the watched ones: removed lines are the videos left to watch.
func (cli *commandLine) remaining(courseID course.ID, token string) error {
	ctx := context.Background()

	crs, err := cli.remote.GetCourse(ctx, token, courseID)
	if err != nil {
		return errors.Wrap(err, "fetching course")
	}
	ids, err := cli.remote.GetWatchedVideos(ctx, token)
	if err != nil {
		return errors.Wrap(err, "fetching watched videos")
	}
	watched := course.NewIDSet(ids...)

	var all, seen []string
	for _, v := range crs.OrderedVideos() {
		line := fmt.Sprintf("%s %s", v.ID, v.TitleOr("-"))
		all = append(all, line)
		if watched.Has(v.ID) {
			seen = append(seen, line)
		}
	}

	_, _ = fmt.Fprintf(cli.out, "%s: progress: %d%%\n", crs.TitleOr(string(crs.ID)), course.ComputeProgress(crs.VideoIDs(), watched))
	if len(seen) == len(all) {
		_, _ = fmt.Fprintln(cli.out, "all videos watched")
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(joinLines(all)),
		B:        difflib.SplitLines(joinLines(seen)),
		FromFile: "course",
		ToFile:   "watched",
		Context:  1,
	})
	if err != nil {
		return errors.Wrap(err, "diffing videos")
	}
	_, _ = fmt.Fprint(cli.out, diff)
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
