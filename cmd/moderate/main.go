// Command moderate applies approval decisions from the command line and
// issues access tokens for local testing.
//
// Usage:
//
//	moderate approve --inquiry=<uuid> [--note=text] [--actor=<uuid>]
//	moderate reject  --inquiry=<uuid> [--note=text] [--actor=<uuid>]
//	moderate token   --user=<uuid> [--role=user|moderator|admin]
//
// Configuration is read the same way as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/app"
	"github.com/heartmarshall/inquiry-backend/internal/auth"
	"github.com/heartmarshall/inquiry-backend/internal/config"
	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
	"github.com/heartmarshall/inquiry-backend/internal/service/moderation"
	"github.com/heartmarshall/inquiry-backend/pkg/ctxutil"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: moderate approve|reject --inquiry=<uuid> [--note=text]")
	fmt.Fprintln(os.Stderr, "       moderate token --user=<uuid> [--role=admin]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	switch os.Args[1] {
	case "approve":
		decide(cfg, domain.ApprovalApproved, os.Args[2:])
	case "reject":
		decide(cfg, domain.ApprovalRejected, os.Args[2:])
	case "token":
		issueToken(cfg, os.Args[2:])
	default:
		usage()
	}
}

func decide(cfg *config.Config, status domain.ApprovalStatus, args []string) {
	fs := flag.NewFlagSet(string(status), flag.ExitOnError)
	inquiry := fs.String("inquiry", "", "inquiry id")
	note := fs.String("note", "", "reason recorded with the decision")
	actor := fs.String("actor", "", "moderator user id recorded on the event (optional)")
	_ = fs.Parse(args)

	id, err := uuid.Parse(*inquiry)
	if err != nil {
		log.Fatalf("--inquiry: %v", err)
	}
	actorID := uuid.New()
	if *actor != "" {
		if actorID, err = uuid.Parse(*actor); err != nil {
			log.Fatalf("--actor: %v", err)
		}
	}

	logger := app.NewLogger(cfg.Log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infra, err := app.Open(ctx, logger, cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer infra.Close()

	notifier := notify.WithConfirmation(infra.Notifier, infra.Events)
	svc := moderation.NewService(logger, infra.Inquiries, infra.Events, infra.Tx, notifier)
	ctx = ctxutil.WithIdentity(ctx, actorID, string(domain.UserRoleAdmin))

	inq, err := svc.SetApprovalStatus(ctx, moderation.SetApprovalInput{InquiryID: id, Status: status, Note: *note})
	if err != nil {
		infra.Close()
		log.Fatalf("%s %s: %v", status, id, err)
	}
	fmt.Printf("Inquiry %s is now %s.\n", inq.ID, inq.ApprovalStatus)
}

func issueToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "user id (random when empty)")
	role := fs.String("role", string(domain.UserRoleUser), "role claim")
	_ = fs.Parse(args)

	userID := uuid.New()
	if *user != "" {
		var err error
		if userID, err = uuid.Parse(*user); err != nil {
			log.Fatalf("--user: %v", err)
		}
	}
	if !domain.UserRole(*role).IsValid() {
		log.Fatalf("--role: unknown role %q", *role)
	}

	jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	token, err := jwt.GenerateAccessToken(userID, *role)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "user %s, role %s, valid for %s\n", userID, *role, cfg.Auth.AccessTokenTTL)
	fmt.Println(token)
}
