package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joefazee/settlement/internal/security"
)

// tokengen issues a PASETO bearer token signed with TOKEN_SYMMETRIC_KEY.
func main() {
	subject := flag.String("sub", "", "principal id carried by the token")
	perms := flag.String("perms", "", "comma separated permissions, e.g. "+security.PermissionAdmin)
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -sub is required")
		os.Exit(2)
	}

	maker, err := security.NewPasetoMaker(os.Getenv("TOKEN_SYMMETRIC_KEY"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}

	var permissions []string
	for _, p := range strings.Split(*perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}

	token, payload, err := maker.CreateToken(*subject, permissions, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", payload.ExpiredAt.Format(time.RFC3339))
}
