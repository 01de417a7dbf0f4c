package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoockh/mockinterview/internal/channel"
	"github.com/yoockh/mockinterview/internal/models"
)

var (
	initResume      string
	initName        string
	initJobFile     string
	initJob         models.Job
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Upload the resume, pick a job and create the interview session",
	Long: `Send the resume and the selected job to the interview service. The job
comes from a JSON file (--job-file) or from the individual flags.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initResume, "resume", "", "Resume PDF (max 10MB)")
	initCmd.Flags().StringVar(&initName, "name", "", "Candidate name")
	initCmd.Flags().StringVar(&initJobFile, "job-file", "", "Job JSON: {id,title,description,skills,level}")
	initCmd.Flags().StringVar(&initJob.ID, "job-id", "", "Job id")
	initCmd.Flags().StringVar(&initJob.Title, "job-title", "", "Job title")
	initCmd.Flags().StringVar(&initJob.Level, "level", "", "Seniority level")
	initCmd.Flags().StringVar(&initDescription, "description", "", "Job description")
	initCmd.Flags().StringSliceVar(&initJob.Skills, "skills", nil, "Required skills")
	_ = initCmd.MarkFlagRequired("resume")
	_ = initCmd.MarkFlagRequired("name")
}

func loadJob() (models.Job, error) {
	job := initJob
	job.Description = initDescription
	if initJobFile != "" {
		b, err := os.ReadFile(initJobFile)
		if err != nil {
			return job, fmt.Errorf("reading job file: %w", err)
		}
		if err := json.Unmarshal(b, &job); err != nil {
			return job, fmt.Errorf("parsing job file: %w", err)
		}
	}
	if strings.TrimSpace(job.Title) == "" {
		return job, fmt.Errorf("a job title is required (--job-title or --job-file)")
	}
	if job.ID == "" {
		job.ID = strings.ToLower(strings.Join(strings.Fields(job.Title), "-"))
	}
	return job, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if err := a.progress.Allow(ctx, models.PageSetup); err != nil {
		return err
	}
	job, err := loadJob()
	if err != nil {
		return err
	}

	f, err := os.Open(initResume)
	if err != nil {
		return fmt.Errorf("opening resume: %w", err)
	}
	resume, err := channel.EncodeResume(f)
	f.Close()
	if err != nil {
		return err
	}

	resp, err := a.client.Init(ctx, models.SessionInitRequest{
		ResumeBase64:   resume,
		JobDescription: job.FormatDescription(),
		CandidateName:  strings.TrimSpace(initName),
		JobRole:        job.Title,
	})
	if err != nil {
		return err
	}

	if _, err := a.progress.StartSession(ctx, resp.SessionID, strings.TrimSpace(initName), job.Title, resp.AvatarURL); err != nil {
		return err
	}
	_, err = a.progress.Update(ctx, func(p *models.Progress) {
		p.ResumeFileName = filepath.Base(initResume)
		p.SelectedJobType = job.ID
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s created for %s (%s).\n", resp.SessionID, initName, job.Title)
	if resp.Message != "" {
		fmt.Fprintln(out, resp.Message)
	}
	fmt.Fprintln(out, "Next: interview-client run")
	return nil
}
