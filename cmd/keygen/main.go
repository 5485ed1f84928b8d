// Command keygen mints a license key in the issuance format and
// optionally inserts it as an active license, for local development and
// manual issuance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/embedchat/embedchat-gateway/internal/domain"
	"github.com/embedchat/embedchat-gateway/internal/license"
	"github.com/embedchat/embedchat-gateway/internal/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "", "sqlite database path; when set, the key is inserted as an active license")
	email := flag.String("email", "", "license holder email")
	plan := flag.String("plan", "standard", "license plan name")
	domains := flag.String("domains", "", "comma-separated allowed domains (empty means unrestricted)")
	flag.Parse()

	key, err := license.NewKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("License key: %s\n", key)

	if *dbPath == "" {
		return
	}

	var allowed []string
	for _, d := range strings.Split(*domains, ",") {
		if n := license.NormalizeDomain(d); n != "" {
			allowed = append(allowed, n)
		}
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	lic := &domain.License{
		Key:            key,
		Email:          *email,
		Status:         domain.LicenseActive,
		Plan:           *plan,
		AllowedDomains: allowed,
	}

	if err := store.CreateLicense(context.Background(), lic); err != nil {
		fmt.Fprintf(os.Stderr, "failed to insert license: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Inserted active license (plan %s, domains %v)\n", lic.Plan, lic.AllowedDomains)
}
