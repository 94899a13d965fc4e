package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/catfeed/internal/infra/httpx"
	"github.com/John-Robertt/catfeed/internal/probe"
)

func newProbeCmd(stdout io.Writer) *cobra.Command {
	var (
		check   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe <feed-url>",
		Short: "读取一个正在运行的 feed 并列出条目（只发 GET feed / HEAD 条目，不触发投递）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runProbe(ctx, httpx.NewClient(timeout), args[0], check, stdout)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "对每个条目发 HEAD，确认仍可下载")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, fmt.Sprintf("单次请求总超时（默认 %s）", httpx.DefaultTimeout))
	return cmd
}

func runProbe(ctx context.Context, c *http.Client, feedURL string, check bool, w io.Writer) error {
	f, err := probe.Fetch(ctx, c, feedURL)
	if err != nil {
		return fmt.Errorf("读取 feed 失败：%w", err)
	}

	fmt.Fprintf(w, "%s (%d 个条目，updated %s)\n", f.Title, len(f.Items), f.Updated)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if check {
		fmt.Fprintln(tw, "UPDATED\tSIZE\tTYPE\tSTATUS\tHREF")
	} else {
		fmt.Fprintln(tw, "UPDATED\tSIZE\tTYPE\tHREF")
	}
	for _, it := range f.Items {
		if !check {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Updated, formatSize(it.Length), it.Type, it.Href)
			continue
		}
		var status string
		code, _, err := probe.Head(ctx, c, it.Href)
		if err != nil {
			status = "ERR " + truncate(err.Error(), 60)
		} else {
			status = strconv.Itoa(code)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Updated, formatSize(it.Length), it.Type, status, it.Href)
	}
	return tw.Flush()
}
