package cli

import (
	"bytes"
	"fmt"
	"path/filepath"

	"snapscreen/internal/common"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Manage the stored resume of a user",
	Long: `Upload, inspect, link and delete the one resume each user keeps in
resume storage (resumes.root). Every subcommand needs --uid.`,
}

var resumeUploadCmd = &cobra.Command{
	Use:   "upload [resume-file]",
	Short: "Upload a PDF, DOC, DOCX or TXT resume, replacing the previous one",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumeUpload,
}

var resumeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored resume",
	Args:  cobra.NoArgs,
	RunE:  runResumeShow,
}

var resumeURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print a signed, expiring download link for the stored resume",
	Args:  cobra.NoArgs,
	RunE:  runResumeURL,
}

var resumeDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored resume",
	Args:  cobra.NoArgs,
	RunE:  runResumeDelete,
}

var (
	resumeUID    string
	resumeConfig common.CommandConfig
)

func init() {
	resumeCmd.PersistentFlags().StringVar(&resumeUID, "uid", "", "User id the resume belongs to")
	_ = resumeCmd.MarkPersistentFlagRequired("uid")
	addOutputFlags(resumeShowCmd, &resumeConfig)

	resumeCmd.AddCommand(resumeUploadCmd)
	resumeCmd.AddCommand(resumeShowCmd)
	resumeCmd.AddCommand(resumeURLCmd)
	resumeCmd.AddCommand(resumeDeleteCmd)
}

func openResumeStore(cmd *cobra.Command) (*services, error) {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return nil, err
	}
	svc := &services{logger: logger}
	if err := svc.openResumes(cfg); err != nil {
		return nil, err
	}
	return svc, nil
}

func runResumeUpload(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	svc, err := openResumeStore(cmd)
	if err != nil {
		return err
	}

	data, err := common.NewFileProcessor(logger).ReadResume(args[0], cfg.App.MaxFileSize)
	if err != nil {
		return err
	}
	info, err := svc.Resumes.Upload(cmd.Context(), resumeUID, filepath.Base(args[0]), bytes.NewReader(data))
	if err != nil {
		return err
	}
	return writeOutput(cmd, info, common.CommandConfig{OutputFormat: "text"})
}

func runResumeShow(cmd *cobra.Command, args []string) error {
	if err := applyFormatDefault(cmd, &resumeConfig); err != nil {
		return err
	}
	svc, err := openResumeStore(cmd)
	if err != nil {
		return err
	}
	info, err := svc.Resumes.Get(cmd.Context(), resumeUID)
	if err != nil {
		return err
	}
	return writeOutput(cmd, info, resumeConfig)
}

func runResumeURL(cmd *cobra.Command, args []string) error {
	svc, err := openResumeStore(cmd)
	if err != nil {
		return err
	}
	info, err := svc.Resumes.Get(cmd.Context(), resumeUID)
	if err != nil {
		return err
	}
	signed, err := svc.Signer.Sign(info.ObjectKey)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\nExpires: %s\n", signed.URL, signed.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func runResumeDelete(cmd *cobra.Command, args []string) error {
	svc, err := openResumeStore(cmd)
	if err != nil {
		return err
	}
	if err := svc.Resumes.Delete(cmd.Context(), resumeUID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted resume of %s\n", resumeUID)
	return nil
}
