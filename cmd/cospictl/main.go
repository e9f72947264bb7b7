package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "cospi/internal/cli"
	"cospi/internal/config"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "cospictl",
		Short:        "COSPI event investment game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newMeCmd(&apiBase),
		newBoothsCmd(&apiBase),
		newVisitCmd(&apiBase),
		newQRCmd(),
		newRateCmd(&apiBase),
		newReviewsCmd(&apiBase),
		newMutateCmd(&apiBase, "invest", "coin", "invest", "Invest coins into a booth"),
		newMutateCmd(&apiBase, "withdraw", "coin", "withdraw", "Withdraw coins from a booth"),
		newMutateCmd(&apiBase, "buy", "stock", "buy", "Buy booth stock"),
		newMutateCmd(&apiBase, "sell", "stock", "sell", "Sell booth stock"),
		newBalanceCmd(&apiBase),
		newHoldingsCmd(&apiBase),
		newHistoryCmd(&apiBase),
		newCospiCmd(&apiBase),
		newRankingCmd(&apiBase),
		newMissionsCmd(&apiBase),
		newAdminCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login with your badge code and name",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := promptRequired("Unique code")
			if err != nil {
				return err
			}
			name, err := promptRequired("Name")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Login(ctx, code, name)
			if err != nil {
				return err
			}
			token, _ := out["token"].(string)
			user, _ := out["user"].(map[string]any)
			sess := cl.Session{Token: token, UniqueCode: code}
			if user != nil {
				sess.UserID = asInt64(user["id"])
				sess.Name, _ = user["name"].(string)
			}
			if err := cl.SaveSession(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome, %s. Session saved.", sess.Name))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your profile and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Me(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderMe(out)
			return nil
		},
	}
}

func newBoothsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "booths [booth_id]",
		Short: "List booths or inspect one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 0 {
				out, err := client.ListBooths(ctx, sess.Token)
				if err != nil {
					return err
				}
				renderBooths(out)
				return nil
			}
			id, err := parseID(args[0], "booth id")
			if err != nil {
				return err
			}
			out, err := client.BoothDetail(ctx, sess.Token, id)
			if err != nil {
				return err
			}
			renderBoothDetail(out)
			return nil
		},
	}
}

func newVisitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "visit [booth_uuid]",
		Short: "Check in at a booth by its QR code value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			boothUUID := ""
			if len(args) > 0 {
				boothUUID = strings.TrimSpace(args[0])
			} else {
				boothUUID, err = promptRequired("Booth code")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Visit(ctx, sess.Token, boothUUID)
			if err != nil {
				return queueOnNetworkError(err, cl.Command{
					Method: "POST",
					Path:   "/v1/booths/visit",
					Body:   map[string]any{"booth_uuid": boothUUID},
				})
			}
			name, _ := out["name"].(string)
			printSuccess(fmt.Sprintf("Checked in at %s.", name))
			return nil
		},
	}
}

// newQRCmd renders a booth's check-in QR in the terminal, for exhibitors who
// want to display it without printed material.
func newQRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qr <booth_uuid>",
		Short: "Render a booth check-in QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qrterminal.GenerateWithConfig(strings.TrimSpace(args[0]), qrterminal.Config{
				Level:     qrterminal.M,
				Writer:    os.Stdout,
				BlackChar: qrterminal.BLACK,
				WhiteChar: qrterminal.WHITE,
				QuietZone: 1,
			})
			return nil
		},
	}
}

func newRateCmd(apiBase *string) *cobra.Command {
	var scores [6]int
	var review string
	axes := []string{"first", "best", "different", "number_one", "gap", "global"}
	cmd := &cobra.Command{
		Use:   "rate <booth_id>",
		Short: "Rate a visited booth on six axes (1-5)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			boothID, err := parseID(args[0], "booth id")
			if err != nil {
				return err
			}
			in := make(map[string]any, len(axes))
			for i, axis := range axes {
				v := scores[i]
				if v == 0 {
					v, err = promptInt(fmt.Sprintf("Score %q (1-5)", axis), 1, 5)
					if err != nil {
						return err
					}
				}
				in[axis] = v
			}
			ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SubmitRating(ctx, sess.Token, boothID, in, strings.TrimSpace(review))
			if err != nil {
				return err
			}
			printSuccess(ratingSavedMessage(out, boothID))
			return nil
		},
	}
	for i, axis := range axes {
		cmd.Flags().IntVar(&scores[i], axis, 0, fmt.Sprintf("score for %q (1-5)", axis))
	}
	cmd.Flags().StringVar(&review, "review", "", "optional free-text review")
	return cmd
}

func newReviewsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <booth_id>",
		Short: "Read a booth's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			boothID, err := parseID(args[0], "booth id")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BoothReviews(ctx, sess.Token, boothID)
			if err != nil {
				return err
			}
			renderReviews(out)
			return nil
		},
	}
}

func newMutateCmd(apiBase *string, use, ledger, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <booth_id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			boothID, err := parseID(args[0], "booth id")
			if err != nil {
				return err
			}
			amount, err := parseID(args[1], "amount")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Mutate(ctx, sess.Token, ledger, op, boothID, amount)
			if err != nil {
				return queueOnNetworkError(err, cl.Command{
					Method: "POST",
					Path:   "/v1/" + ledger + "/" + op,
					Body:   map[string]any{"booth_id": boothID, "amount": amount},
				})
			}
			printSuccess(fmt.Sprintf("%s ok: balance is now %s.", op, formatAmount(asInt64(out["balance_after"]))))
			return nil
		},
	}
}

func newBalanceCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [coin|stock]",
		Short: "Show a ledger balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ledger, err := ledgerArg(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Balance(ctx, sess.Token, ledger)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("%s balance: %s", ledger, formatAmount(asInt64(out["balance"]))))
			return nil
		},
	}
}

func newHoldingsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings [coin|stock]",
		Short: "Show your per-booth holdings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ledger, err := ledgerArg(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Holdings(ctx, sess.Token, ledger)
			if err != nil {
				return err
			}
			renderHoldings(out, ledger)
			return nil
		},
	}
}

func newHistoryCmd(apiBase *string) *cobra.Command {
	var boothID int64
	cmd := &cobra.Command{
		Use:   "history [coin|stock]",
		Short: "Show your transaction history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ledger, err := ledgerArg(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).History(ctx, sess.Token, ledger, boothID)
			if err != nil {
				return err
			}
			renderHistory(out, ledger)
			return nil
		},
	}
	cmd.Flags().Int64Var(&boothID, "booth", 0, "filter by booth id")
	return cmd
}

func newCospiCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cospi",
		Short: "Show the COSPI market index",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Cospi(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderCospi(out)
			return nil
		},
	}
}

func newRankingCmd(apiBase *string) *cobra.Command {
	ranking := &cobra.Command{
		Use:   "ranking",
		Short: "Leaderboards",
	}
	ranking.AddCommand(&cobra.Command{
		Use:   "booths",
		Short: "Booth investment leaderboard (after results are revealed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BoothRanking(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderBoothRanking(out)
			return nil
		},
	})
	ranking.AddCommand(&cobra.Command{
		Use:   "mission <mission_id>",
		Short: "Per-mission leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MissionRanking(ctx, sess.Token, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			renderMissionRanking(out)
			return nil
		},
	})
	return ranking
}

func newMissionsCmd(apiBase *string) *cobra.Command {
	missions := &cobra.Command{
		Use:   "missions",
		Short: "Mission progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MyMissions(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderMissions(out)
			return nil
		},
	}
	missions.AddCommand(&cobra.Command{
		Use:   "progress <mission_id> <value>",
		Short: "Report mission progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("invalid progress value")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MissionProgress(ctx, sess.Token, strings.TrimSpace(args[0]), value)
			if err != nil {
				return err
			}
			renderMission(out)
			return nil
		},
	})
	missions.AddCommand(&cobra.Command{
		Use:   "complete <mission_id>",
		Short: "Mark a mission completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MissionComplete(ctx, sess.Token, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			renderMission(out)
			return nil
		},
	})
	return missions
}

func newAdminCmd(apiBase *string) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Organizer operations",
	}
	results := &cobra.Command{
		Use:   "results",
		Short: "Show whether final results are revealed",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ResultsGet(ctx, sess.Token)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("results_revealed=%v", out["results_revealed"]))
			return nil
		},
	}
	results.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip the results reveal switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ResultsToggle(ctx, sess.Token)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("results_revealed=%v", out["results_revealed"]))
			return nil
		},
	})
	admin.AddCommand(results)
	admin.AddCommand(&cobra.Command{
		Use:   "ratings",
		Short: "Per-booth rating aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).RatingSummaries(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderRatingSummaries(out)
			return nil
		},
	})
	return admin
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			queue, err := cl.LoadQueue()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]cl.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				if _, err := client.Do(ctx, q.Method, q.Path, sess.Token, q.Body); err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := cl.SaveQueue(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError pushes a write onto the offline queue when the failure
// is transport-level; API rejections pass through unchanged.
func queueOnNetworkError(err error, cmd cl.Command) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "api status") {
		return err
	}
	if qerr := cl.PushQueue(cmd); qerr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", err)
	}
	printWarn(fmt.Sprintf("Offline: queued %s %s for later sync.", cmd.Method, cmd.Path))
	return nil
}

func ledgerArg(args []string) (string, error) {
	if len(args) == 0 {
		return "coin", nil
	}
	l := strings.ToLower(strings.TrimSpace(args[0]))
	if l != "coin" && l != "stock" {
		return "", fmt.Errorf("ledger must be coin or stock")
	}
	return l, nil
}

func parseID(raw, label string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", label)
	}
	return v, nil
}
