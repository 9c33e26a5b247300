package handlers

import (
	"fmt"
	"time"

	"cardiobrief/internal/config"
	"cardiobrief/internal/core"
	"cardiobrief/internal/email"
	"cardiobrief/internal/logger"
	"cardiobrief/internal/render"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewDigestCmd creates the digest command for building and sending the digest
func NewDigestCmd() *cobra.Command {
	var (
		send      bool
		recipient string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build the HTML digest and optionally send it by email",
		Long: `Digest renders every article with generated content into one HTML
digest, writes it to the output directory, and optionally delivers it to a
single recipient over SMTP. Articles whose generation failed (empty content)
are filtered out before rendering.

A send failure is logged and reported but does not discard the rendered
file.

Examples:
  # Render the digest to the output directory
  cardiobrief digest

  # Render and email it
  cardiobrief digest --send --to doctor@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			b2c, err := db.ListGenerated(core.ClassB2C, 0)
			if err != nil {
				return fmt.Errorf("listing B2C articles: %w", err)
			}
			b2b, err := db.ListGenerated(core.ClassB2B, 0)
			if err != nil {
				return fmt.Errorf("listing B2B articles: %w", err)
			}

			if len(b2c)+len(b2b) == 0 {
				fmt.Println("No generated content to include in a digest.")
				return nil
			}

			now := time.Now()
			html := email.BuildDigest(b2c, b2b)
			subject := email.Subject(now)

			path, err := render.WriteDigestToFile(html, cfg.Output.Directory, render.DigestFilename(now))
			if err != nil {
				return err
			}
			fmt.Printf("Digest written to %s (%d B2C, %d B2B articles)\n", path, len(b2c), len(b2b))

			var urls []string
			for _, article := range append(b2c, b2b...) {
				urls = append(urls, article.URL)
			}
			digest := &core.Digest{
				ID:            uuid.NewString(),
				Subject:       subject,
				HTML:          html,
				ArticleURLs:   urls,
				DateGenerated: now.UTC(),
			}
			if err := db.SaveDigest(digest); err != nil {
				logger.Error("Failed to store digest", err)
			}

			if !send {
				return nil
			}

			if recipient == "" {
				recipient = cfg.Email.Recipient
			}
			if recipient == "" {
				return fmt.Errorf("no recipient configured; pass --to or set DIGEST_RECIPIENT")
			}

			sender := email.NewSender(email.SMTPOptions{
				Host:        cfg.Email.SMTP.Host,
				Port:        cfg.Email.SMTP.Port,
				Username:    cfg.Email.SMTP.Username,
				Password:    cfg.Email.SMTP.Password,
				TLSEnabled:  cfg.Email.SMTP.TLSEnabled,
				FromAddress: cfg.Email.FromAddress,
				FromName:    cfg.Email.FromName,
			})
			if !sender.Enabled() {
				return fmt.Errorf("email delivery not configured; set SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD")
			}

			if err := sender.Send(html, subject, recipient); err != nil {
				// The digest file already exists; report the failure without
				// rethrowing it as a crash.
				fmt.Printf("Digest delivery failed: %v\n", err)
				return nil
			}

			fmt.Printf("Digest sent to %s\n", recipient)
			return nil
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Send the digest by email after rendering")
	cmd.Flags().StringVar(&recipient, "to", "", "Digest recipient (default from config)")

	return cmd
}
