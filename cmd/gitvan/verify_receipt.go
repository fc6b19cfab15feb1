package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gitvan-dev/gitvan/pkg/hook"
	"github.com/spf13/cobra"
)

func newVerifyReceiptCommand() *cobra.Command {
	var pubKeyPath string
	cmd := &cobra.Command{
		Use:   "verify-receipt <commit>",
		Short: "Re-check the receipt(s) recorded against a commit: signature validity and pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}

			notes, err := backend.NotesList(cfg.NotesRef)
			if err != nil {
				return userErr(fmt.Errorf("gitvan: list notes on %s: %w", cfg.NotesRef, err))
			}

			var matched []hook.Receipt
			for _, n := range notes {
				if n.ObjectSHA != args[0] {
					continue
				}
				var r hook.Receipt
				if err := json.Unmarshal([]byte(n.Payload), &r); err != nil {
					return userErr(fmt.Errorf("gitvan: decode receipt on %s: %w", args[0], err))
				}
				matched = append(matched, r)
			}
			if len(matched) == 0 {
				return userErr(fmt.Errorf("gitvan: no receipt found for commit %s on %s", args[0], cfg.NotesRef))
			}

			var pub ed25519.PublicKey
			if pubKeyPath != "" {
				raw, err := os.ReadFile(pubKeyPath)
				if err != nil {
					return userErr(fmt.Errorf("gitvan: read public key %s: %w", pubKeyPath, err))
				}
				if len(raw) != ed25519.PublicKeySize {
					return userErr(fmt.Errorf("gitvan: public key %s: want %d bytes, got %d", pubKeyPath, ed25519.PublicKeySize, len(raw)))
				}
				pub = ed25519.PublicKey(raw)
			}

			failures := 0
			for _, r := range matched {
				failedSteps := 0
				for _, step := range r.Pipeline {
					if step.Status == "failed" {
						failedSteps++
					}
				}
				fmt.Fprintf(outWriter, "hook %s  fired=%v  steps=%d  failed=%d\n", r.HookID, r.Predicate.Verdict, len(r.Pipeline), failedSteps)

				switch {
				case r.Signature == "":
					fmt.Fprintln(outWriter, "  signature: none")
				case pub == nil:
					fmt.Fprintln(outWriter, "  signature: present (no --pubkey given, skipping verification)")
				default:
					ok, err := r.Verify(pub)
					if err != nil {
						fmt.Fprintf(outWriter, "  signature: error: %v\n", err)
						failures++
						continue
					}
					if !ok {
						fmt.Fprintln(outWriter, "  signature: INVALID")
						failures++
						continue
					}
					fmt.Fprintln(outWriter, "  signature: valid")
				}
				if failedSteps > 0 {
					failures++
				}
			}

			if failures > 0 {
				return evalErr(fmt.Errorf("gitvan: %d receipt(s) failed verification", failures))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pubKeyPath, "pubkey", "", "path to the raw 32-byte Ed25519 public key to verify the receipt's signature against")
	return cmd
}
