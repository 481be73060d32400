// Package main is the command-line front end for the campus events platform:
// browsing the catalog, signing in or up (with SMS verification), managing
// registrations, and the administrator tooling.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/ports"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/service"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/infrastructure/api"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/infrastructure/sessionfile"
	"github.com/ismaelcontreras07/proyecto-programacion/internal/pkg/config"
	"github.com/ismaelcontreras07/proyecto-programacion/pkg/logger"
)

const usage = `Usage: eventos <command> [flags]

Commands:
  events list [-type T] [-month YYYY-MM]   browse the event catalog
  events show <event-id>                   show one event's detail
  login                                    sign in with matrícula and password
  signup                                   create an account (SMS verification)
  logout                                   sign out
  me                                       show the current session
  watch                                    follow session changes live
  registrations list                       list your registrations
  registrations enroll <event-id>          register for an event
  registrations cancel <event-id>          cancel your registration
  admin summary                            dashboard metrics
  admin create|update <event-id>           create or edit an event
  admin delete <event-id>                  delete an event
  admin upload <file>                      upload a cover image
`

type app struct {
	log     zerolog.Logger
	store   *sessionfile.Store
	bridge  *sessionfile.Bridge
	client  *api.Client
	auth    *service.AuthService
	signup  *service.SignupService
	catalog *service.CatalogService
	regs    *service.RegistrationsService
	admin   *service.AdminService
	in      *bufio.Reader
}

// stdoutNavigator reports where the web front end would send the user next.
type stdoutNavigator struct{}

func (stdoutNavigator) Navigate(to ports.Route) {
	fmt.Printf("-> %s\n", to)
}

// stdinConfirmer asks for a y/N answer before destructive actions.
type stdinConfirmer struct {
	in *bufio.Reader
}

func (c stdinConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	bridge, err := sessionfile.NewBridge(cfg.SessionFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("session bridge")
	}
	defer bridge.Close()

	in := bufio.NewReader(os.Stdin)
	store := sessionfile.NewStore(cfg.SessionFile)
	client := api.NewClient(cfg.APIBaseURL, nil, log)
	auth := service.NewAuthService(store, bridge, stdoutNavigator{}, log)
	defer auth.Close()
	auth.Ready()

	a := &app{
		log:     log,
		store:   store,
		bridge:  bridge,
		client:  client,
		auth:    auth,
		signup:  service.NewSignupService(client, auth, log),
		catalog: service.NewCatalogService(client, log),
		regs:    service.NewRegistrationsService(client, auth, log),
		in:      in,
	}
	a.admin = service.NewAdminService(client, auth, stdinConfirmer{in: in}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "events":
		return a.runEvents(ctx, args)
	case "login":
		return a.runLogin(ctx)
	case "signup":
		return a.runSignup(ctx)
	case "logout":
		return a.auth.Logout()
	case "me":
		return a.runMe()
	case "watch":
		return a.runWatch(ctx)
	case "registrations":
		return a.runRegistrations(ctx, args)
	case "admin":
		return a.runAdmin(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// --- events -----------------------------------------------------------------

func (a *app) runEvents(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("events: missing subcommand (list, show)")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("events list", flag.ExitOnError)
		typ := fs.String("type", service.FilterAll, "event type (Presencial, En línea)")
		month := fs.String("month", service.FilterAll, "month key, e.g. 2026-05")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := a.catalog.Load(ctx); err != nil {
			return err
		}

		events := a.catalog.Filtered(*typ, *month)
		if len(events) == 0 {
			fmt.Println("no events match the current filters")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tTYPE\tSPOTS\tNAME\tPLACE")
		for _, ev := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", ev.ID, ev.Date, ev.Type, ev.Spots, ev.Name, ev.Place)
		}
		return w.Flush()

	case "show":
		if len(args) < 2 {
			return fmt.Errorf("events show: missing event id")
		}
		detail, err := a.client.GetEvent(ctx, args[1])
		if err != nil {
			if err == domain.ErrEventNotFound {
				fmt.Println("this event does not exist or was removed")
				return nil
			}
			return err
		}
		fmt.Printf("%s\n%s %s, %s\n%s\n\n%s\n", detail.Name, detail.Date, detail.Time, detail.Place, detail.Location, detail.Summary)
		if len(detail.Agenda) > 0 {
			fmt.Println("\nAgenda:")
			for _, item := range detail.Agenda {
				fmt.Println("  -", item)
			}
		}
		if len(detail.Requirements) > 0 {
			fmt.Println("\nRequirements:")
			for _, item := range detail.Requirements {
				fmt.Println("  -", item)
			}
		}
		return nil

	default:
		return fmt.Errorf("events: unknown subcommand %q", args[0])
	}
}

// --- auth -------------------------------------------------------------------

func (a *app) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) runLogin(ctx context.Context) error {
	raw, err := a.prompt("Matrícula (XXXXXXXX-XX): ")
	if err != nil {
		return err
	}
	password, err := a.prompt("Password: ")
	if err != nil {
		return err
	}

	if err := a.signup.SubmitSignIn(ctx, service.NormalizeStudentID(raw), password); err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", a.auth.CurrentUser().FullName)
	return nil
}

func (a *app) runSignup(ctx context.Context) error {
	if err := a.signup.SwitchMode(service.ModeSignUp); err != nil {
		return err
	}

	form := service.SignUpForm{}
	var err error
	if form.FullName, err = a.prompt("Full name: "); err != nil {
		return err
	}
	var rawID string
	if rawID, err = a.prompt("Matrícula (XXXXXXXX-XX): "); err != nil {
		return err
	}
	form.StudentID = service.NormalizeStudentID(rawID)
	if form.Email, err = a.prompt("Email: "); err != nil {
		return err
	}
	if form.Career, err = a.prompt("Career: "); err != nil {
		return err
	}
	var semester string
	if semester, err = a.prompt("Semester (1-12): "); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(semester, "%d", &form.Semester); err != nil {
		return fmt.Errorf("semester must be a number")
	}
	if form.Phone, err = a.prompt("Phone: "); err != nil {
		return err
	}

	if err := a.signup.SubmitSignUp(ctx, form); err != nil {
		return err
	}
	if a.signup.Mode() != service.ModeVerifySMS {
		fmt.Println("account created, you are signed in")
		return nil
	}

	// SMS verification loop: wrong codes keep the pending context alive;
	// an empty answer abandons it back to the sign-up step.
	pending := a.signup.Pending()
	fmt.Println(pending.Message)
	fmt.Printf("code sent to %s\n", pending.SMSDestination)
	if pending.DevSMSCode != "" {
		fmt.Printf("(dev code: %s)\n", pending.DevSMSCode)
	}
	for a.signup.Mode() == service.ModeVerifySMS {
		code, err := a.prompt("Verification code (empty to abandon): ")
		if err != nil {
			return err
		}
		if code == "" {
			if err := a.signup.AbandonVerification(); err != nil {
				return err
			}
			fmt.Println("verification abandoned; run signup again to retry")
			return nil
		}
		if err := a.signup.SubmitCode(ctx, code); err != nil {
			fmt.Println("error:", a.signup.ErrorMessage())
			fmt.Printf("code sent to %s\n", a.signup.Pending().SMSDestination)
		}
	}
	fmt.Printf("phone verified, signed in as %s\n", a.auth.CurrentUser().FullName)
	return nil
}

func (a *app) runMe() error {
	snap := a.auth.Snapshot()
	if !snap.IsAuthenticated {
		fmt.Println("not signed in")
		return nil
	}
	u := snap.User
	fmt.Printf("%s (%s)\nrole: %s\n", u.FullName, u.Username, u.Role)
	if u.StudentID != "" {
		fmt.Printf("matrícula: %s, %s, semester %d\n", u.StudentID, u.Career, u.Semester)
	}
	return nil
}

func (a *app) runWatch(ctx context.Context) error {
	fmt.Println("watching session changes (ctrl-c to stop)")
	cancel := a.auth.OnChange(func(snap service.AuthSnapshot) {
		if snap.IsAuthenticated {
			fmt.Printf("session: signed in as %s (%s)\n", snap.User.Username, snap.User.Role)
		} else {
			fmt.Println("session: signed out")
		}
	})
	defer cancel()

	<-ctx.Done()
	return nil
}

// --- registrations ----------------------------------------------------------

func (a *app) runRegistrations(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("registrations: missing subcommand (list, enroll, cancel)")
	}

	switch args[0] {
	case "list":
		if err := a.regs.Load(ctx); err != nil {
			return err
		}
		items := a.regs.Items()
		if len(items) == 0 {
			fmt.Println("no registrations yet; browse the events and save your spot")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EVENT\tDATE\tSTATUS\tNAME")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.EventID, item.Event.Date, item.Status, item.Event.Name)
		}
		return w.Flush()

	case "enroll":
		if len(args) < 2 {
			return fmt.Errorf("registrations enroll: missing event id")
		}
		detail, err := a.client.GetEvent(ctx, args[1])
		if err != nil {
			return err
		}
		if err := a.regs.Enroll(ctx, detail.ID, detail.Name); err != nil {
			return err
		}
		fmt.Println(a.regs.SuccessMessage())
		return nil

	case "cancel":
		if len(args) < 2 {
			return fmt.Errorf("registrations cancel: missing event id")
		}
		if err := a.regs.Load(ctx); err != nil {
			return err
		}
		for _, item := range a.regs.Items() {
			if item.EventID == args[1] && item.Status == domain.StatusRegistered {
				if err := a.regs.Cancel(ctx, item.RegistrationID, item.EventID); err != nil {
					return err
				}
				fmt.Println(a.regs.SuccessMessage())
				return nil
			}
		}
		return fmt.Errorf("no active registration for event %s", args[1])

	default:
		return fmt.Errorf("registrations: unknown subcommand %q", args[0])
	}
}

// --- admin ------------------------------------------------------------------

func (a *app) runAdmin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("admin: missing subcommand (summary, create, update, delete, upload)")
	}

	switch args[0] {
	case "summary":
		if err := a.admin.LoadSummary(ctx); err != nil {
			return err
		}
		s := a.admin.Summary()
		if s == nil {
			// Load was aborted; there is nothing to print.
			return nil
		}
		fmt.Printf("users: %d\nevents: %d\nregistrations: %d (last 24h: %d)\n",
			s.TotalUsers, s.TotalEvents, s.TotalRegistrations, s.RegistrationsToday)
		if len(s.TopEvents) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tREGISTRATIONS\tSPOTS LEFT")
			for _, t := range s.TopEvents {
				fmt.Fprintf(w, "%s\t%d\t%d\n", t.EventName, t.TotalRegistrations, t.AvailableSpots)
			}
			return w.Flush()
		}
		return nil

	case "create", "update":
		if args[0] == "update" {
			if len(args) < 2 {
				return fmt.Errorf("admin update: missing event id")
			}
			if err := a.admin.Edit(ctx, args[1]); err != nil {
				return err
			}
		}
		form, err := a.promptEventForm(a.admin.Form())
		if err != nil {
			return err
		}
		a.admin.SetForm(form)
		if err := a.admin.Submit(ctx); err != nil {
			return err
		}
		fmt.Println(a.admin.SuccessMessage())
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("admin delete: missing event id")
		}
		if err := a.admin.Delete(ctx, args[1]); err != nil {
			return err
		}
		if msg := a.admin.SuccessMessage(); msg != "" {
			fmt.Println(msg)
		}
		return nil

	case "upload":
		if len(args) < 2 {
			return fmt.Errorf("admin upload: missing file path")
		}
		file, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer file.Close()
		url, err := a.admin.UploadImage(ctx, file.Name(), file)
		if err != nil {
			return err
		}
		fmt.Println("image uploaded:", url)
		return nil

	default:
		return fmt.Errorf("admin: unknown subcommand %q", args[0])
	}
}

// promptEventForm walks through every form field, keeping the current value
// when the answer is empty. Multiline fields take one item per line.
func (a *app) promptEventForm(form service.EventForm) (service.EventForm, error) {
	ask := func(label, current string) (string, error) {
		answer, err := a.prompt(fmt.Sprintf("%s [%s]: ", label, current))
		if err != nil {
			return "", err
		}
		if answer == "" {
			return current, nil
		}
		return answer, nil
	}

	var err error
	if form.Name, err = ask("Name", form.Name); err != nil {
		return form, err
	}
	if form.Date, err = ask("Date (YYYY-MM-DD)", form.Date); err != nil {
		return form, err
	}
	if form.Time, err = ask("Time window", form.Time); err != nil {
		return form, err
	}
	if form.Place, err = ask("Place", form.Place); err != nil {
		return form, err
	}
	if form.Location, err = ask("Full address", form.Location); err != nil {
		return form, err
	}
	spots, err := ask("Spots", fmt.Sprint(form.Spots))
	if err != nil {
		return form, err
	}
	if _, err := fmt.Sscanf(spots, "%d", &form.Spots); err != nil {
		return form, fmt.Errorf("spots must be a number")
	}
	typ, err := ask("Type (Presencial / En línea)", string(form.Type))
	if err != nil {
		return form, err
	}
	form.Type = domain.EventType(typ)
	if form.Summary, err = ask("Summary", form.Summary); err != nil {
		return form, err
	}
	if form.Agenda, err = a.promptLines("Agenda", form.Agenda); err != nil {
		return form, err
	}
	if form.Requirements, err = a.promptLines("Requirements", form.Requirements); err != nil {
		return form, err
	}
	if form.Image == "" {
		fmt.Println("note: upload a cover image first (admin upload <file>), then paste its URL")
		if form.Image, err = ask("Image URL", form.Image); err != nil {
			return form, err
		}
	}
	return form, nil
}

func (a *app) promptLines(label, current string) (string, error) {
	fmt.Printf("%s (one item per line, empty line to finish", label)
	if current != "" {
		fmt.Print(", empty first line keeps current")
	}
	fmt.Println("):")

	var lines []string
	for {
		line, err := a.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimRight(line, "\n")
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return current, nil
	}
	return strings.Join(lines, "\n"), nil
}
