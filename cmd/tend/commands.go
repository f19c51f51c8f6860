package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Wire shapes for the management API. Dates are YYYY-MM-DD strings.

type contactPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cadence  string `json:"cadence"`
	Notes    string `json:"notes"`
	Birthday string `json:"birthday"`
	NextDue  string `json:"next_due"`
}

type contactViewPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cadence     string `json:"cadence"`
	Notes       string `json:"notes"`
	NextDue     string `json:"next_due"`
	DaysOverdue int    `json:"days_overdue"`
	Overdue     bool   `json:"overdue"`
}

type interactionPayload struct {
	ID         string `json:"id"`
	ContactID  string `json:"contact_id"`
	Summary    string `json:"summary"`
	OccurredAt string `json:"occurred_at"`
}

// dueLabel renders the overdue pair the way the due list shows it.
func dueLabel(v contactViewPayload) string {
	switch {
	case v.Overdue && v.DaysOverdue == 0:
		return colorize(colorYellow, "due today")
	case v.Overdue && v.DaysOverdue == 1:
		return colorize(colorRed, "1 day overdue")
	case v.Overdue:
		return colorize(colorRed, fmt.Sprintf("%d days overdue", v.DaysOverdue))
	case v.DaysOverdue == 1:
		return "in 1 day"
	default:
		return fmt.Sprintf("in %d days", v.DaysOverdue)
	}
}

func printContactLine(v contactViewPayload) {
	fmt.Printf("%s  %-24s %-12s due %s  %s\n",
		colorize(colorCyan, v.ID[:8]),
		v.Name,
		v.Cadence,
		v.NextDue,
		dueLabel(v),
	)
}

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a person to check in with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cadence, _ := cmd.Flags().GetString("cadence")
		notes, _ := cmd.Flags().GetString("notes")
		birthday, _ := cmd.Flags().GetString("birthday")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{
			"name":     args[0],
			"cadence":  cadence,
			"notes":    notes,
			"birthday": birthday,
		}
		resp, err := client.post(cmd.Context(), "/contacts", body)
		if err != nil {
			return err
		}

		var c contactPayload
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		printSuccess("Added %s (%s), first check-in due %s", c.Name, c.Cadence, c.NextDue)
		return nil
	},
}

func init() {
	addCmd.Flags().String("cadence", "", "check-in cadence: weekly, monthly, quarterly, semi-annual or annual (default monthly)")
	addCmd.Flags().String("notes", "", "free-form notes")
	addCmd.Flags().String("birthday", "", "birthday (YYYY-MM-DD)")
}

// --- due / list ---

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List contacts due for a check-in",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/contacts"
		if date != "" {
			path += "?currentDate=" + url.QueryEscape(date)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var views []contactViewPayload
		if err := decodeJSON(resp, &views); err != nil {
			return err
		}

		if len(views) == 0 {
			fmt.Println("Nobody is due. You're all caught up.")
			return nil
		}
		for _, v := range views {
			printContactLine(v)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/contacts/all")
		if err != nil {
			return err
		}

		var views []contactViewPayload
		if err := decodeJSON(resp, &views); err != nil {
			return err
		}

		if len(views) == 0 {
			fmt.Println("No contacts yet. Add one with: tend add <name>")
			return nil
		}
		for _, v := range views {
			printContactLine(v)
		}
		return nil
	},
}

func init() {
	dueCmd.Flags().String("date", "", "reference date (YYYY-MM-DD), defaults to today")
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a contact and their recent check-ins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/contacts/"+args[0])
		if err != nil {
			return err
		}
		var c contactPayload
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		fmt.Printf("%s\n", colorize(colorBold, c.Name))
		fmt.Printf("  ID:       %s\n", c.ID)
		fmt.Printf("  Cadence:  %s\n", c.Cadence)
		fmt.Printf("  Next due: %s\n", c.NextDue)
		if c.Birthday != "" {
			fmt.Printf("  Birthday: %s\n", c.Birthday)
		}
		if c.Notes != "" {
			fmt.Printf("  Notes:    %s\n", c.Notes)
		}

		resp, err = client.get(cmd.Context(), "/interactions?contact_id="+url.QueryEscape(c.ID))
		if err != nil {
			return err
		}
		var history []interactionPayload
		if err := decodeJSON(resp, &history); err != nil {
			return err
		}
		if len(history) > 0 {
			fmt.Println("\nRecent check-ins:")
			for _, ix := range history {
				summary := ix.Summary
				if summary == "" {
					summary = colorize(colorYellow, "(no summary)")
				}
				fmt.Printf("  %s  %s\n", ix.OccurredAt, summary)
			}
		}
		return nil
	},
}

// --- done / advance ---

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Record a completed check-in and advance the schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetString("summary")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"contact_id": args[0], "summary": summary}
		resp, err := client.post(cmd.Context(), "/interactions", body)
		if err != nil {
			return err
		}

		var result struct {
			Contact contactPayload `json:"contact"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return fmt.Errorf("%w\nif the check-in was logged but the schedule did not move, retry with: tend advance %s", err, args[0])
		}

		printSuccess("Checked in with %s, next due %s", result.Contact.Name, result.Contact.NextDue)
		return nil
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <id>",
	Short: "Advance a contact's schedule without logging a check-in",
	Long: `Advance a contact's schedule without logging a check-in.

Use this to retry the schedule step after "tend done" reported that the
check-in was logged but the due date was not moved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/contacts/"+args[0]+"/advance", nil)
		if err != nil {
			return err
		}

		var c contactPayload
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		printSuccess("Schedule advanced for %s, next due %s", c.Name, c.NextDue)
		return nil
	},
}

func init() {
	doneCmd.Flags().String("summary", "", "what you talked about (may be empty)")
}

// --- edit / rm ---

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a contact's profile",
	Long: `Edit a contact's profile.

Only the provided flags change; editing never moves the next due date,
even when the cadence changes. The new cadence applies from the next
completed check-in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		// Fetch current values so unset flags are preserved.
		resp, err := client.get(cmd.Context(), "/contacts/"+args[0])
		if err != nil {
			return err
		}
		var current contactPayload
		if err := decodeJSON(resp, &current); err != nil {
			return err
		}

		body := map[string]string{
			"name":     current.Name,
			"cadence":  current.Cadence,
			"notes":    current.Notes,
			"birthday": current.Birthday,
		}
		for flag, key := range map[string]string{
			"name":     "name",
			"cadence":  "cadence",
			"notes":    "notes",
			"birthday": "birthday",
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				body[key] = v
			}
		}

		resp, err = client.put(cmd.Context(), "/contacts/"+args[0], body)
		if err != nil {
			return err
		}
		var c contactPayload
		if err := decodeJSON(resp, &c); err != nil {
			return err
		}

		printSuccess("Updated %s (%s), next due %s", c.Name, c.Cadence, c.NextDue)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a contact and their check-in history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This removes the contact and all their check-ins. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/contacts/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Contact removed")
		return nil
	},
}

func init() {
	editCmd.Flags().String("name", "", "display name")
	editCmd.Flags().String("cadence", "", "check-in cadence")
	editCmd.Flags().String("notes", "", "free-form notes")
	editCmd.Flags().String("birthday", "", "birthday (YYYY-MM-DD)")
	rmCmd.Flags().Bool("confirm", false, "confirm removal")
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List recent check-ins",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		contactID, _ := cmd.Flags().GetString("contact")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/interactions?limit=%d", limit)
		if contactID != "" {
			path += "&contact_id=" + url.QueryEscape(contactID)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var history []interactionPayload
		if err := decodeJSON(resp, &history); err != nil {
			return err
		}

		if len(history) == 0 {
			fmt.Println("No check-ins yet.")
			return nil
		}
		for _, ix := range history {
			summary := ix.Summary
			if len(summary) > 80 {
				summary = summary[:80] + "..."
			}
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, ix.ID[:8]),
				ix.OccurredAt,
				summary,
			)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().Int("limit", 20, "maximum number of check-ins to list")
	logCmd.Flags().String("contact", "", "only check-ins with this contact")
}

// --- clock ---

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Inspect or simulate the server's date",
}

var clockShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the server's current date",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/debug/clock")
		if err != nil {
			return err
		}
		return printClock(resp)
	},
}

var clockSetCmd = &cobra.Command{
	Use:   "set <date>",
	Short: "Pin the server's date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/debug/clock", map[string]string{"date": args[0]})
		if err != nil {
			return err
		}
		return printClock(resp)
	},
}

var clockAdvanceCmd = &cobra.Command{
	Use:   "advance <days>",
	Short: "Move the simulated date forward by N days",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("days must be a number: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/debug/clock", map[string]int{"advance_days": days})
		if err != nil {
			return err
		}
		return printClock(resp)
	},
}

var clockResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the real clock",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/debug/clock")
		if err != nil {
			return err
		}
		return printClock(resp)
	},
}

func printClock(resp *http.Response) error {
	var ck struct {
		Today     string `json:"today"`
		Simulated bool   `json:"simulated"`
	}
	if err := decodeJSON(resp, &ck); err != nil {
		return err
	}
	if ck.Simulated {
		fmt.Printf("%s %s\n", ck.Today, colorize(colorYellow, "(simulated)"))
	} else {
		fmt.Println(ck.Today)
	}
	return nil
}

func init() {
	clockCmd.AddCommand(clockShowCmd)
	clockCmd.AddCommand(clockSetCmd)
	clockCmd.AddCommand(clockAdvanceCmd)
	clockCmd.AddCommand(clockResetCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <ics|vcf>",
	Short: "Export the roster as an iCalendar or vCard file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		switch args[0] {
		case "ics":
			path = "/export/calendar.ics"
		case "vcf":
			path = "/export/contacts.vcf"
		default:
			return fmt.Errorf("unknown format %q (want ics or vcf)", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}

		output, _ := cmd.Flags().GetString("output")
		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported to %s", output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}
