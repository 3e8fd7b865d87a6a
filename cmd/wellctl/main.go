package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"wellcheck/internal/attendance"
	"wellcheck/internal/client"
	"wellcheck/internal/config"
	"wellcheck/internal/faceclient"
)

type options struct {
	server    string
	tokenFile string
	email     string
	password  string
	selfie    string
	mood      string
	note      string
	every     time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("wellctl", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", envOr("WELLCHECK_URL", "http://localhost:3001"), "API base URL")
	flagSet.StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where the login token is stored")
	flagSet.StringVar(&opts.email, "email", "", "account email (login)")
	flagSet.StringVar(&opts.password, "password", os.Getenv("WELLCHECK_PASSWORD"), "account password (login)")
	flagSet.StringVar(&opts.selfie, "selfie", "", "path to a selfie image (checkin, checkout)")
	flagSet.StringVar(&opts.mood, "mood", "", "current mood (checkout)")
	flagSet.StringVar(&opts.note, "note", "", "optional note")
	flagSet.DurationVar(&opts.every, "every", time.Minute, "re-evaluation interval (watch)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	api := client.New(opts.server)

	command := flagSet.Arg(0)
	if command == "login" {
		return login(ctx, out, api, opts)
	}

	token, err := os.ReadFile(opts.tokenFile)
	if err != nil {
		return fmt.Errorf("not logged in, run `wellctl login --email you@example.com` first: %w", err)
	}
	api.SetToken(strings.TrimSpace(string(token)))

	page := client.NewPage(api, faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip), cfg.Policy())
	if err := page.Refresh(ctx); err != nil {
		return err
	}

	switch command {
	case "status":
		printStatus(out, page, time.Now())
		return nil
	case "checkin":
		return submit(ctx, out, page, attendance.KindCheckIn, opts)
	case "checkout":
		return submit(ctx, out, page, attendance.KindCheckOut, opts)
	case "watch":
		err := page.Watch(ctx, opts.every, func(now time.Time, e attendance.Eligibility) {
			fmt.Fprintf(out, "%s  %s\n", now.Format(time.TimeOnly), summarize(e, now))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return fmt.Errorf("unknown command %q", command)
}

func login(ctx context.Context, out io.Writer, api *client.Client, opts options) error {
	if opts.email == "" || opts.password == "" {
		return errors.New("login needs --email and --password (or WELLCHECK_PASSWORD)")
	}
	sess, err := api.Login(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.tokenFile), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(opts.tokenFile, []byte(sess.Token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(out, "Logged in as %s (%s), token valid until %s\n", sess.User.Name, sess.User.Role, sess.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func submit(ctx context.Context, out io.Writer, page *client.Page, kind attendance.Kind, opts options) error {
	if opts.selfie != "" {
		frame, err := os.ReadFile(opts.selfie)
		if err != nil {
			return fmt.Errorf("read selfie: %w", err)
		}
		face, err := page.Capture(ctx, frame)
		if err != nil {
			return err
		}
		if face != nil && kind == attendance.KindCheckIn {
			fmt.Fprintf(out, "Detected %s, about %.0f, looking %s\n", face.Gender, face.Age, face.Expression)
		}
	}

	rec, err := page.Submit(ctx, kind, opts.mood, opts.note)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Stale() {
			printStatus(out, page, time.Now())
		}
		return err
	}
	fmt.Fprintf(out, "Recorded %s at %s, mood %s\n", rec.Kind, rec.OccurredAt.Local().Format(time.Kitchen), rec.Mood)
	return nil
}

func printStatus(out io.Writer, page *client.Page, now time.Time) {
	fmt.Fprintf(out, "%s: %s\n", page.Profile().Name, summarize(page.Eligibility(now), now))
	if w := page.Warning(now); w != attendance.WarningNone {
		fmt.Fprintf(out, "! %s\n", w.Message())
	}
}

func summarize(e attendance.Eligibility, now time.Time) string {
	switch {
	case !e.HasCheckedIn:
		return "not checked in, check-in open"
	case e.HasCheckedOut:
		return "checked in and out, done for today"
	case e.CheckOutLocked && e.CheckOutUnlockAt != nil:
		left := e.CheckOutUnlockAt.Sub(now).Round(time.Minute)
		return fmt.Sprintf("checked in, check-out unlocks at %s (in %s)", e.CheckOutUnlockAt.Local().Format(time.Kitchen), left)
	}
	return "checked in, check-out open"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wellcheck", "token")
	}
	return ".wellcheck-token"
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `wellctl: daily check-in and check-out from the terminal.

Usage:
  wellctl <command> [flags]

Commands:
  login      sign in and store the access token
  status     show today's check-in state and any warning
  checkin    check in with --selfie; mood comes from the detected expression
  checkout   check out with --selfie and --mood once check-out unlocks
  watch      print the check-in state every --every until interrupted

Flags:
%s`, flagSet.FlagUsages())
}
