package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/spf13/cobra"
)

func (r *runner) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your profile",
	}
	cmd.AddCommand(r.profileShowCommand(), r.profileUpdateCommand(), r.profilePhysicalCommand(), r.profileCleanupCommand())
	return cmd
}

func (r *runner) profileShowCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if refresh {
				if _, err := r.app.profile.Refresh(ctx); err != nil {
					fmt.Fprintf(r.app.out, "Refresh failed, showing cached profile: %v\n", err)
				}
			}
			p, err := r.app.profile.Get(ctx)
			if err != nil {
				return err
			}
			printProfile(r.app.out, p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "merge the backend copy first")
	return cmd
}

func printProfile(w io.Writer, p *models.UserProfile) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	m := p.Metadata
	fmt.Fprintf(tw, "Name:\t%s\n", m.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", orDash(p.Email))
	fmt.Fprintf(tw, "Bio:\t%s\n", orDash(m.Bio))
	fmt.Fprintf(tw, "Units:\t%s\n", m.PreferredUnitSystem)
	fmt.Fprintf(tw, "Language:\t%s\n", orDash(m.LanguageCode))
	fmt.Fprintf(tw, "Date of birth:\t%s\n", formatDate(m.DateOfBirth))

	if ph := p.Physical; !ph.IsEmpty() {
		if ph.BiologicalSex != nil {
			fmt.Fprintf(tw, "Biological sex:\t%s (%s)\n", *ph.BiologicalSex, ph.BiologicalSexSource)
		}
		if ph.HeightCm != nil {
			fmt.Fprintf(tw, "Height:\t%.1f cm (%s)\n", *ph.HeightCm, ph.HeightSource)
		}
	}
	if len(p.PendingFields) > 0 {
		fmt.Fprintf(tw, "Unsynced:\t%s\n", strings.Join(p.PendingFields, ", "))
	}
	fmt.Fprintf(tw, "Last sync:\t%s\n", formatTime(p.LastSuccessfulSyncAt))
	_ = tw.Flush()
}

func (r *runner) profileUpdateCommand() *cobra.Command {
	var name, bio, units, language, dob string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch models.MetadataPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("bio") {
				patch.Bio = &bio
			}
			if flags.Changed("units") {
				u := models.UnitSystem(strings.ToLower(units))
				patch.PreferredUnitSystem = &u
			}
			if flags.Changed("language") {
				patch.LanguageCode = &language
			}
			if flags.Changed("dob") {
				t, err := parseDate(dob)
				if err != nil {
					return err
				}
				patch.DateOfBirth = &t
			}

			p, err := r.app.profile.UpdateMetadata(cmd.Context(), patch)
			if err != nil {
				return err
			}
			printProfile(r.app.out, p)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&bio, "bio", "", "short bio")
	f.StringVar(&units, "units", "", "metric or imperial")
	f.StringVar(&language, "language", "", "language code, e.g. en or en-GB")
	f.StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	return cmd
}

func (r *runner) profilePhysicalCommand() *cobra.Command {
	var sex, height, dob string
	cmd := &cobra.Command{
		Use:   "physical",
		Short: "Enter physical attributes manually",
		Long: `Enter physical attributes manually. Attributes imported from the health
store are kept; they can only be replaced by newer health data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch models.PhysicalPatch
			if sex != "" {
				s := models.BiologicalSex(strings.ToLower(sex))
				patch.BiologicalSex = &s
			}
			if height != "" {
				h, err := strconv.ParseFloat(height, 64)
				if err != nil {
					return fmt.Errorf("invalid height %q", height)
				}
				patch.HeightCm = &h
			}
			if dob != "" {
				t, err := parseDate(dob)
				if err != nil {
					return err
				}
				patch.DateOfBirth = &t
			}

			p, rejected, err := r.app.profile.UpdatePhysical(cmd.Context(), patch, models.SourceManual)
			if err != nil {
				return err
			}
			if len(rejected) > 0 {
				fmt.Fprintf(r.app.out, "Kept health data for: %s\n", strings.Join(rejected, ", "))
			}
			printProfile(r.app.out, p)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&sex, "sex", "", "female, male or other")
	f.StringVar(&height, "height", "", "height in centimetres")
	f.StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	return cmd
}

func (r *runner) profileCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove duplicate cached profiles, keeping the newest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := r.app.profile.CleanupDuplicates(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "Removed %d duplicate profile(s)\n", n)
			return nil
		},
	}
}

func (r *runner) healthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Import data from the health export file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Import biological sex and height from the health export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ran, err := r.app.profile.PerformInitialHealthKitSync(ctx)
			if err != nil {
				return err
			}
			if !ran {
				if _, err := r.app.profile.SyncBiologicalSexFromHealthKit(ctx); err != nil {
					return err
				}
				if _, err := r.app.profile.SyncHeightFromHealthKit(ctx); err != nil {
					return err
				}
			}
			p, err := r.app.profile.Get(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "Imported from %s\n", r.app.health.Path())
			printProfile(r.app.out, p)
			return nil
		},
	})
	return cmd
}
