package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"headshot/internal/domain"
	"headshot/internal/identity"
	"headshot/internal/infra"
	"headshot/internal/middleware"
	"headshot/internal/sqlinline"
	"headshot/internal/usage"
)

func main() {
	var (
		idFlag         string
		emailFlag      string
		tierFlag       string
		keepUsageFlag  bool
		printTokenFlag bool
		tokenTTLFlag   time.Duration
	)

	flag.StringVar(&idFlag, "id", "", "identity to update (created if missing)")
	flag.StringVar(&emailFlag, "email", "", "identity email; resolves -id when -id is empty")
	flag.StringVar(&tierFlag, "tier", "free", "tier to grant (free, standard, unlimited)")
	flag.BoolVar(&keepUsageFlag, "keep-usage", false, "preserve generationsUsed instead of resetting to 0")
	flag.BoolVar(&printTokenFlag, "print-token", false, "print a bearer token for the identity")
	flag.DurationVar(&tokenTTLFlag, "token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	_ = godotenv.Load()

	id := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	tier := domain.PlanTier(strings.ToLower(strings.TrimSpace(tierFlag)))

	if id == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	switch tier {
	case domain.PlanFree, domain.PlanStandard, domain.PlanUnlimited:
	default:
		exitWithError(fmt.Errorf("unsupported tier %q", tierFlag))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	if id == "" {
		if err := runner.QueryRow(ctx, sqlinline.QSelectIdentityByEmail, email).Scan(&id); err != nil {
			exitWithError(fmt.Errorf("failed to resolve %s: %w", email, err))
		}
	}

	resolver := usage.NewPlanResolver(nil, cfg.UnlimitedPlanKeys, cfg.StandardPlanKeys)
	planKeys := resolver.Aliases(tier)
	if planKeys == nil {
		planKeys = []string{}
	}

	var (
		gotID    string
		gotEmail string
		gotPlans []string
		rawMeta  []byte
	)
	row := runner.QueryRow(ctx, sqlinline.QUpsertIdentityPlans, id, email, planKeys)
	if err := row.Scan(&gotID, &gotEmail, &gotPlans, &rawMeta); err != nil {
		exitWithError(fmt.Errorf("failed to update identity plans: %w", err))
	}

	if !keepUsageFlag {
		md := domain.Metadata{}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &md); err != nil {
				exitWithError(fmt.Errorf("failed to decode identity metadata: %w", err))
			}
		}
		md[domain.MetaGenerationsUsed] = 0
		md[domain.MetaLastResetDate] = time.Now().UTC().Format(time.RFC3339)
		if _, err := identity.NewPGDirectory(runner).UpdateMetadata(ctx, gotID, md); err != nil {
			exitWithError(fmt.Errorf("failed to reset usage: %w", err))
		}
	}

	// Cached plan answers would otherwise outlive the change by the cache TTL.
	if rdb, err := infra.NewRedisClient(ctx, cfg); err == nil {
		cached := identity.NewCachedDirectory(nil, rdb, cfg.PlanCacheTTL, logger)
		keys := append(resolver.Aliases(domain.PlanUnlimited), resolver.Aliases(domain.PlanStandard)...)
		if err := cached.Invalidate(ctx, gotID, keys...); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate plan cache")
		}
		_ = rdb.Close()
	}

	fmt.Printf("Identity %s (%s) now holds %s plan keys %v\n", gotID, gotEmail, tier, gotPlans)
	if !keepUsageFlag {
		fmt.Println("generationsUsed=0")
	}

	if printTokenFlag {
		token, err := middleware.SignJWT(cfg.JWTSecret, gotID, gotEmail, tokenTTLFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to sign token: %w", err))
		}
		fmt.Println(token)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
