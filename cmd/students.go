package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/internal/deskapi"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
)

var (
	sessionFile string

	loginEmail    string
	loginPassword string

	signupForm auth.SignupForm
	signupRole string

	newStudent models.NewStudent
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage students from the terminal",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		commonSetUp(cmd)
		client := deskapi.NewClient(appCfg.API.BaseURL, appCfg.API.Timeout)

		res, err := auth.NewFlow(client).Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return userError(err)
		}
		return saveSession(cmd, res)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a user and store the session locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		commonSetUp(cmd)
		client := deskapi.NewClient(appCfg.API.BaseURL, appCfg.API.Timeout)

		form := signupForm
		form.Role = models.Role(signupRole)
		res, err := auth.NewFlow(client).Signup(cmd.Context(), &form)
		if err != nil {
			return userError(err)
		}
		return saveSession(cmd, res)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessions.NewFileStore(sessionFile).Delete(cmd.Context(), "")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all students",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newCLIEngine(cmd)
		if err != nil {
			return err
		}
		if err := engine.Refresh(cmd.Context()); err != nil {
			return userError(err)
		}
		printSnapshot(cmd.OutOrStdout(), engine.Snapshot())
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a student",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newCLIEngine(cmd)
		if err != nil {
			return err
		}
		if err := requireRole(engine, models.RoleOperator); err != nil {
			return err
		}

		ns := newStudent
		ns.Phone = validation.SanitizePhone(ns.Phone)
		student, err := engine.Create(cmd.Context(), ns)
		if err != nil {
			return userError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", student.Name, student.ID)
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <student-id> <staff-name>",
	Short: "Allocate a staff member to a student",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newCLIEngine(cmd)
		if err != nil {
			return err
		}
		if err := requireRole(engine, models.RoleReceptionist); err != nil {
			return err
		}
		if err := engine.Refresh(cmd.Context()); err != nil {
			return userError(err)
		}
		if err := engine.Assign(cmd.Context(), args[0], args[1]); err != nil {
			return userError(err)
		}

		rec, _ := engine.Snapshot().Find(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s is allocated to %s\n", rec.Name, rec.Allocation())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the student list, refreshed every sync interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newCLIEngine(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		task := engine.Activate(ctx)
		defer task.Stop()

		ticker := time.NewTicker(engine.Interval())
		defer ticker.Stop()

		var shown time.Time
		for {
			snap := engine.Snapshot()
			if snap.Status != studentsync.StatusLoading && (shown.IsZero() || !snap.UpdatedAt.Equal(shown) || snap.Status == studentsync.StatusError) {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", time.Now().Format(time.TimeOnly))
				printSnapshot(cmd.OutOrStdout(), snap)
				shown = snap.UpdatedAt
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.PersistentFlags().StringVar(&sessionFile, "session-file", sessions.DefaultSessionPath(), "file the session is stored in")

	studentsCmd.AddCommand(loginCmd, signupCmd, logoutCmd, listCmd, addCmd, assignCmd, watchCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", os.Getenv("STUDENTDESK_PASSWORD"), "account password (default $STUDENTDESK_PASSWORD)")

	signupCmd.Flags().StringVar(&signupForm.Name, "name", "", "full name")
	signupCmd.Flags().StringVar(&signupForm.Email, "email", "", "account email")
	signupCmd.Flags().StringVar(&signupForm.Password, "password", "", "account password")
	signupCmd.Flags().StringVar(&signupForm.ConfirmPassword, "confirm-password", "", "repeat the password")
	signupCmd.Flags().StringVar(&signupRole, "role", string(models.RoleOperator), "operator or receptionist")

	addCmd.Flags().StringVar(&newStudent.Name, "name", "", "student name")
	addCmd.Flags().StringVar(&newStudent.Email, "email", "", "student email")
	addCmd.Flags().StringVar(&newStudent.Phone, "phone", "", "10 digit phone number")
}

func saveSession(cmd *cobra.Command, res *auth.Result) error {
	if err := sessions.NewFileStore(sessionFile).Save(cmd.Context(), res.Session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", res.Session.User.Email, res.Session.User.Role)
	return nil
}

// newCLIEngine builds an engine for the stored session.
func newCLIEngine(cmd *cobra.Command) (*studentsync.Engine, error) {
	commonSetUp(cmd)

	session, err := sessions.NewFileStore(sessionFile).Current(cmd.Context())
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, errors.New("not logged in, run 'students login' first")
	}
	if err != nil {
		return nil, err
	}

	logger := log.Logger
	client := deskapi.NewClient(appCfg.API.BaseURL, appCfg.API.Timeout)
	return studentsync.New(client, session, studentsync.Options{
		Interval: appCfg.Sync.Interval,
		Staff:    appCfg.Staff,
		Logger:   &logger,
	}), nil
}

func requireRole(engine *studentsync.Engine, role models.Role) error {
	if got := engine.Session().User.Role; got != role {
		return fmt.Errorf("this command needs the %s role, you are logged in as %s", role, got)
	}
	return nil
}

// userError converts err into the message shown to the user.
func userError(err error) error {
	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return errors.New(deskapi.Message(err))
}

func printSnapshot(out io.Writer, snap studentsync.Snapshot) {
	if snap.Status == studentsync.StatusError {
		fmt.Fprintf(out, "error: %s\n", snap.Message)
	}
	if len(snap.Students) == 0 {
		if snap.Status != studentsync.StatusError {
			fmt.Fprintln(out, "No students yet")
		}
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tALLOCATED")
	for _, r := range snap.Students {
		allocated := r.Allocation()
		if r.State != studentsync.Synced {
			allocated += " (" + r.State.String() + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Email, r.Phone, allocated)
	}
	tw.Flush()
}

