package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-outreach/internal/domain"
)

// AddCmd returns the add command.
func AddCmd() *cobra.Command {
	var in domain.NewContactInput

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a single contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			in.Email = args[0]
			c, created, err := a.store.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(w, "%s %s (%s)\n", color.New(color.FgGreen).Sprint("added"), c.Email, c.ID)
			} else {
				fmt.Fprintf(w, "%s %s [%s]\n", color.New(color.FgYellow).Sprint("exists"), c.Email, c.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name, used when first name is empty")
	cmd.Flags().StringVar(&in.CompanyName, "company", "", "company name")
	cmd.Flags().StringVar(&in.City, "city", "", "city")
	return cmd
}

// ImportCmd returns the import command.
func ImportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import contacts from a CSV or JSON file",
		Long: `Import contacts in bulk. CSV files need a header row with an "email"
column; first_name, last_name, name, company_name and city are optional.
JSON files hold an array of contact objects. Existing addresses are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
			}
			inputs, err := parseContacts(f, format)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			res := a.store.AddBulk(cmd.Context(), inputs)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "added %s, skipped %s, errors %s\n",
				color.New(color.FgGreen).Sprint(res.Added),
				color.New(color.FgYellow).Sprint(res.Skipped),
				color.New(color.FgRed).Sprint(len(res.Errors)))
			for _, e := range res.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "csv or json (default: from the file extension)")
	return cmd
}

// csvColumns maps accepted header names to contact fields.
var csvColumns = map[string]func(*domain.NewContactInput, string){
	"email":        func(in *domain.NewContactInput, v string) { in.Email = v },
	"first_name":   func(in *domain.NewContactInput, v string) { in.FirstName = v },
	"firstname":    func(in *domain.NewContactInput, v string) { in.FirstName = v },
	"last_name":    func(in *domain.NewContactInput, v string) { in.LastName = v },
	"lastname":     func(in *domain.NewContactInput, v string) { in.LastName = v },
	"name":         func(in *domain.NewContactInput, v string) { in.Name = v },
	"company_name": func(in *domain.NewContactInput, v string) { in.CompanyName = v },
	"companyname":  func(in *domain.NewContactInput, v string) { in.CompanyName = v },
	"company":      func(in *domain.NewContactInput, v string) { in.CompanyName = v },
	"city":         func(in *domain.NewContactInput, v string) { in.City = v },
}

// parseContacts decodes contacts in the given format ("csv" or "json").
func parseContacts(r io.Reader, format string) ([]domain.NewContactInput, error) {
	switch format {
	case "json":
		var out []domain.NewContactInput
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return out, nil
	case "csv":
		return parseCSV(r)
	default:
		return nil, fmt.Errorf("unsupported format %q, use csv or json", format)
	}
}

func parseCSV(r io.Reader) ([]domain.NewContactInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, err
	}
	setters := make([]func(*domain.NewContactInput, string), len(header))
	hasEmail := false
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		setters[i] = csvColumns[key]
		hasEmail = hasEmail || key == "email"
	}
	if !hasEmail {
		return nil, errors.New(`csv header must include an "email" column`)
	}

	var out []domain.NewContactInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var in domain.NewContactInput
		for i, v := range rec {
			if i < len(setters) && setters[i] != nil {
				setters[i](&in, strings.TrimSpace(v))
			}
		}
		out = append(out, in)
	}
	return out, nil
}
