// gn-auth-migrate drives the data migration endpoint for one or more
// users, authenticating against the OAuth2 token endpoint first.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type options struct {
	serverURL    string
	tokenURL     string
	clientID     string
	clientSecret string
	operator     string
	password     string
	usersFile    string
}

func main() {
	log := logrus.New()

	var opts options
	flag.StringVar(&opts.serverURL, "server", "http://localhost:8080", "Authorisation service base URL")
	flag.StringVar(&opts.tokenURL, "token-url", "", "OAuth2 token endpoint URL")
	flag.StringVar(&opts.clientID, "client-id", "", "OAuth2 client id (must be on the migration allow-list)")
	flag.StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret")
	flag.StringVar(&opts.operator, "operator", "", "Operator account email for the password grant")
	flag.StringVar(&opts.password, "password", "", "Operator account password")
	flag.StringVar(&opts.usersFile, "users", "", "CSV file of users to migrate: user_id,email,username,password")
	flag.Parse()

	if opts.tokenURL == "" || opts.clientID == "" || opts.usersFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	conf := &oauth2.Config{
		ClientID:     opts.clientID,
		ClientSecret: opts.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: opts.tokenURL},
		Scopes:       []string{"migrate-data"},
	}
	token, err := conf.PasswordCredentialsToken(ctx, opts.operator, opts.password)
	if err != nil {
		log.Fatalf("Failed to obtain access token: %v", err)
	}
	client := conf.Client(ctx, token)

	users, err := readUsers(opts.usersFile)
	if err != nil {
		log.Fatalf("Failed to read users file: %v", err)
	}

	failures := 0
	for _, user := range users {
		if err := migrateUser(ctx, client, opts.serverURL, user); err != nil {
			log.WithField("user_id", user.userID).Errorf("Migration failed: %v", err)
			failures++
			continue
		}
		log.WithField("user_id", user.userID).Info("Migrated")
	}
	if failures > 0 {
		log.Fatalf("%d of %d migrations failed", failures, len(users))
	}
}

type migrationUser struct {
	userID   string
	email    string
	username string
	password string
}

// readUsers parses the CSV of accounts to migrate. A header row starting
// with "user_id" is skipped.
func readUsers(path string) ([]migrationUser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	var users []migrationUser
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "user_id") {
			continue
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("row %d: expected 4 fields, got %d", i+1, len(row))
		}
		users = append(users, migrationUser{
			userID:   row[0],
			email:    row[1],
			username: row[2],
			password: row[3],
		})
	}
	return users, nil
}

func migrateUser(ctx context.Context, client *http.Client, serverURL string, user migrationUser) error {
	form := url.Values{
		"user_id":          {user.userID},
		"email":            {user.email},
		"username":         {user.username},
		"password":         {user.password},
		"confirm_password": {user.password},
	}
	req, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(serverURL, "/")+"/user/migrate",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server answered %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("unexpected response body: %w", err)
	}
	fmt.Println(result.Description)
	return nil
}
