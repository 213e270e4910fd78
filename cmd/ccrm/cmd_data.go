package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/repository"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/database"
)

func newTranscriptCmd(a *app) *cobra.Command {
	var format, output string
	opts := models.DefaultTranscriptOptions()
	cmd := &cobra.Command{
		Use:   "transcript <student-id>",
		Short: "Print or save a student's transcript as json, csv or pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseTranscriptFormat(format)
			if err != nil {
				return err
			}

			var body []byte
			if f == models.TranscriptFormatJSON {
				transcript, err := a.transcripts.Build(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				if body, err = json.MarshalIndent(transcript, "", "  "); err != nil {
					return err
				}
				body = append(body, '\n')
			} else {
				rendered, err := a.transcripts.Render(cmd.Context(), args[0], f, opts)
				if err != nil {
					return err
				}
				body = rendered.Body
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "transcript written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.IncludeInactive, "include-inactive", opts.IncludeInactive, "show withdrawn enrollments")
	cmd.Flags().BoolVar(&opts.IncludeGPA, "gpa", opts.IncludeGPA, "include the cumulative GPA")
	cmd.Flags().BoolVar(&opts.IncludeSummary, "summary", opts.IncludeSummary, "include enrollment counts")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the interchange CSV files to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.interchange.ExportAll(cmd.Context(), dir)
			if err != nil {
				return err
			}
			for _, file := range report.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", file, report.Rows[file])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", report.Dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default the data directory)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var dir string
	cmd := mutating(&cobra.Command{
		Use:   "import",
		Short: "Load interchange CSV files from a directory into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := dir
			if src == "" {
				src = a.dataDir
			}
			report, err := a.interchange.ImportAll(cmd.Context(), src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d students, %d courses, %d enrollments, %d instructors\n",
				report.Students, report.Courses, report.Enrollments, report.Instructors)
			for _, skipped := range report.Skipped {
				fmt.Fprintf(out, "skipped %s line %d: %s\n", skipped.File, skipped.Line, skipped.Reason)
			}
			return nil
		},
	})
	cmd.Flags().StringVar(&dir, "dir", "", "source directory (default the data directory)")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	var backupDir string
	cmd := &cobra.Command{Use: "backup", Short: "Manage timestamped data directory backups"}
	cmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "backup root (default BACKUP_DIR)")

	backups := func() (*service.BackupService, error) {
		dir := backupDir
		if dir == "" {
			dir = a.cfg.Backups.Dir
		}
		return service.NewBackupService(service.BackupConfig{Dir: dir}, a.interchange, nil, a.logger)
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Save the registry and copy the data directory into a new backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := backups()
			if err != nil {
				return err
			}
			info, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d files, %d bytes)\n", info.Path, info.Files, info.SizeBytes)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := backups()
			if err != nil {
				return err
			}
			infos, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d files\t%d bytes\n",
					info.Name, info.CreatedAt.Format(dateLayout+" 15:04:05"), info.Files, info.SizeBytes)
			}
			return nil
		},
	}

	var days int
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove backups older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := backups()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Backups.RetentionDays
			}
			deleted, err := svc.Cleanup(cmd.Context(), days)
			if err != nil {
				return err
			}
			for _, name := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d backups removed\n", len(deleted))
			return nil
		},
	}
	cleanup.Flags().IntVar(&days, "days", 30, "maximum backup age in days")

	cmd.AddCommand(create, list, cleanup)
	return cmd
}

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Mirror the registry to and from PostgreSQL"}

	run := func(cmd *cobra.Command, pull bool) error {
		db, err := database.NewPostgres(cmd.Context(), a.cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		repo := repository.NewSnapshotRepository(db)
		if err := repo.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		mirror := service.NewMirrorService(a.reg, a.locks, repo, nil, a.logger, true)

		var counts map[string]int
		if pull {
			counts, err = mirror.Pull(cmd.Context())
		} else {
			counts, err = mirror.Push(cmd.Context())
		}
		if err != nil {
			return err
		}
		printCounts(cmd.OutOrStdout(), counts)
		return nil
	}

	push := &cobra.Command{
		Use:   "push",
		Short: "Replace the database mirror with the data directory contents",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd, false) },
	}
	pull := mutating(&cobra.Command{
		Use:   "pull",
		Short: "Load the database mirror into the data directory",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return run(cmd, true) },
	})

	cmd.AddCommand(push, pull)
	return cmd
}

func printCounts(w io.Writer, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
}
