package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/recoveryplus/recoveryplus-backend/internal/db"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

// Seeds the catalog (protocols, rules, flags), demo accounts, and two weeks
// of sample data for the first athlete, then computes their recent scores
// and prescriptions in-process so the dashboard is populated immediately.
func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Auto migration failed", "error", err)
	}
	thePG := postgresService.DB()
	ctx := context.Background()

	userRepo := repos.NewUserRepo(thePG, log)
	metricSampleRepo := repos.NewMetricSampleRepo(thePG, log)
	sessionSurveyRepo := repos.NewSessionSurveyRepo(thePG, log)
	readinessScoreRepo := repos.NewReadinessScoreRepo(thePG, log)
	ruleRepo := repos.NewRuleRepo(thePG, log)
	protocolRepo := repos.NewProtocolRepo(thePG, log)
	prescriptionRepo := repos.NewPrescriptionRepo(thePG, log)
	featureFlagRepo := repos.NewFeatureFlagRepo(thePG, log)
	sourceAccountRepo := repos.NewSourceAccountRepo(thePG, log)

	log.Info("Creating users...")
	admin := ensureUser(ctx, log, userRepo, "admin@recoveryplus.io", "admin123", "Admin User", types.RoleAdmin, types.SportGeneral)
	john := ensureUser(ctx, log, userRepo, "john@example.com", "athlete123", "John Runner", types.RoleAthlete, types.SportRunning)
	ensureUser(ctx, log, userRepo, "sarah@example.com", "athlete123", "Sarah Cyclist", types.RoleAthlete, types.SportCycling)

	log.Info("Creating protocols...")
	protocolIDs := seedProtocols(ctx, log, protocolRepo, admin.ID)

	log.Info("Creating rules...")
	seedRules(ctx, log, ruleRepo, protocolIDs)

	log.Info("Creating feature flags...")
	for name, enabled := range map[string]bool{
		types.FlagEnablePrescriptions: true,
		types.FlagEnableSurveyPrompts: true,
		types.FlagEnableNotifications: false,
	} {
		if err := featureFlagRepo.Upsert(ctx, nil, &types.FeatureFlag{Name: name, Enabled: enabled}); err != nil {
			log.Fatal("Failed to seed flag", "name", name, "error", err)
		}
	}

	log.Info("Creating sample metrics (14 days)...")
	today := utils.DayOf(time.Now())
	rng := rand.New(rand.NewSource(42))
	for i := 13; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)

		hrv := 65 + rng.Float64()*10 - 5
		if i == 2 {
			hrv *= 0.85
		}
		sleep := 7 + rng.Float64()*2 - 1
		if i == 1 {
			sleep = 5.5
		}
		rhr := 52 + rng.Float64()*6 - 3
		if i == 2 {
			rhr *= 1.15
		}
		load := 400 + rng.Float64()*200 - 100

		for _, s := range []struct {
			kind  types.MetricKind
			value float64
			unit  string
		}{
			{types.MetricHRV, float64(int(hrv)), "ms"},
			{types.MetricSleepDuration, float64(int(sleep*10)) / 10, "hours"},
			{types.MetricRHR, float64(int(rhr)), "bpm"},
			{types.MetricLoad, float64(int(load)), "au"},
		} {
			sample := &types.MetricSample{
				ID:     uuid.New(),
				UserID: john.ID,
				Date:   date,
				Kind:   s.kind,
				Source: types.SourceAppleHealth,
				Value:  s.value,
				Unit:   s.unit,
			}
			if err := metricSampleRepo.Upsert(ctx, nil, sample); err != nil {
				log.Fatal("Failed to seed metric", "kind", s.kind, "error", err)
			}
		}
	}

	log.Info("Creating sample surveys...")
	for i := 6; i >= 0; i -= 2 {
		sessionAt := today.AddDate(0, 0, -i).Add(17*time.Hour + 30*time.Minute)
		stiffness := rng.Intn(3) + 3
		soreness := rng.Intn(3) + 3
		notes := ""
		if i == 2 {
			stiffness, soreness = 7, 6
			notes = "Hamstrings tight after intervals"
		}
		survey := &types.SessionSurvey{
			ID:          uuid.New(),
			UserID:      john.ID,
			SessionAt:   sessionAt,
			Stiffness:   stiffness,
			Soreness:    soreness,
			MentalReset: rng.Intn(3) + 5,
			Notes:       notes,
		}
		if _, err := sessionSurveyRepo.Create(ctx, nil, survey); err != nil {
			log.Fatal("Failed to seed survey", "error", err)
		}
	}

	log.Info("Computing readiness scores (7 days)...")
	readinessService := services.NewReadinessService(thePG, log, userRepo, metricSampleRepo, sessionSurveyRepo, readinessScoreRepo)
	for i := 6; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		if _, err := readinessService.ComputeAndStore(ctx, john.ID, date); err != nil {
			log.Fatal("Failed to compute readiness", "date", date, "error", err)
		}
	}

	log.Info("Generating prescriptions (3 days)...")
	engine := services.NewPrescriptionEngine(thePG, log, readinessScoreRepo, metricSampleRepo, sessionSurveyRepo, ruleRepo, protocolRepo, prescriptionRepo)
	flags := services.FlagSnapshot{PrescriptionsEnabled: true, SurveyPromptsEnabled: true}
	for i := 2; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		if _, err := engine.Generate(ctx, john.ID, date, flags); err != nil {
			log.Fatal("Failed to generate prescription", "date", date, "error", err)
		}
	}

	log.Info("Setting up source accounts...")
	if err := sourceAccountRepo.TouchLastSync(ctx, nil, john.ID, types.SourceAppleHealth, today); err != nil {
		log.Fatal("Failed to seed source account", "error", err)
	}

	log.Info("Seed completed")
	fmt.Println("Test accounts:")
	fmt.Println("  admin@recoveryplus.io / admin123")
	fmt.Println("  john@example.com / athlete123")
	fmt.Println("  sarah@example.com / athlete123")
}

func ensureUser(ctx context.Context, log *logger.Logger, users repos.UserRepo, email, password, name string, role types.Role, sport types.Sport) *types.User {
	existing, err := users.GetByEmail(ctx, nil, email)
	if err != nil {
		log.Fatal("Failed to look up user", "email", email, "error", err)
	}
	if existing != nil {
		return existing
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password", "error", err)
	}
	user := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Sport:        sport,
		Timezone:     "UTC",
	}
	created, err := users.Create(ctx, nil, user)
	if err != nil {
		log.Fatal("Failed to create user", "email", email, "error", err)
	}
	return created
}

func seedProtocols(ctx context.Context, log *logger.Logger, protocols repos.ProtocolRepo, adminID uuid.UUID) map[string]uuid.UUID {
	ids := map[string]uuid.UUID{}
	existing, err := protocols.List(ctx, nil, false)
	if err != nil {
		log.Fatal("Failed to list protocols", "error", err)
	}
	byTitle := map[string]uuid.UUID{}
	for _, p := range existing {
		byTitle[p.Title] = p.ID
	}

	for _, def := range []struct {
		title    string
		duration int
		steps    []string
		tags     []string
	}{
		{"Foam Rolling: Lower Body", 15, []string{"Quads 2min/side", "Hamstrings 2min/side", "Calves 2min/side", "Glutes 2min/side"}, []string{"soreness", "mobility", "lower_body"}},
		{"Contrast Shower", 10, []string{"2min warm", "30s cold", "repeat 3x"}, []string{"recovery", "circulation"}},
		{"Evening Mobility Flow", 20, []string{"Hip openers 5min", "Spine twists 5min", "Shoulder circles 5min", "Deep squat hold 5min"}, []string{"stiffness", "mobility"}},
		{"Box Breathing", 8, []string{"Inhale 4s", "Hold 4s", "Exhale 4s", "Hold 4s", "Repeat 10 rounds"}, []string{"recovery", "mental", "sleep"}},
		{"Easy Spin Flush", 25, []string{"Very light resistance", "Cadence 85-95", "Keep HR in zone 1"}, []string{"recovery", "active_recovery"}},
		{"Legs Up The Wall", 12, []string{"Lie with legs elevated", "Relax breathing", "Hold 10-12min"}, []string{"recovery", "sleep", "circulation"}},
	} {
		if id, ok := byTitle[def.title]; ok {
			ids[def.title] = id
			continue
		}
		stepsJSON, _ := json.Marshal(def.steps)
		tagsJSON, _ := json.Marshal(def.tags)
		createdBy := adminID
		protocol := &types.Protocol{
			ID:          uuid.New(),
			Title:       def.title,
			DurationMin: def.duration,
			Steps:       datatypes.JSON(stepsJSON),
			Tags:        datatypes.JSON(tagsJSON),
			IsActive:    true,
			CreatedBy:   &createdBy,
		}
		if _, err := protocols.Create(ctx, nil, protocol); err != nil {
			log.Fatal("Failed to seed protocol", "title", def.title, "error", err)
		}
		ids[def.title] = protocol.ID
	}
	return ids
}

func seedRules(ctx context.Context, log *logger.Logger, rules repos.RuleRepo, protocolIDs map[string]uuid.UUID) {
	existing, err := rules.List(ctx, nil)
	if err != nil {
		log.Fatal("Failed to list rules", "error", err)
	}
	byName := map[string]bool{}
	for _, r := range existing {
		byName[r.Name] = true
	}

	for _, def := range []struct {
		name       string
		priority   int
		conditions []types.RuleCondition
		actions    []types.RuleAction
	}{
		{
			name:     "Low readiness recovery block",
			priority: 100,
			conditions: []types.RuleCondition{
				{Metric: "readinessScore", Operator: types.OpLT, Value: 60},
			},
			actions: []types.RuleAction{
				{Type: types.ActionAddProtocol, ProtocolTags: []string{"recovery"}},
			},
		},
		{
			name:     "HRV suppressed with poor sleep",
			priority: 90,
			conditions: []types.RuleCondition{
				{Metric: "hrvDeltaPct", Operator: types.OpLT, Value: -10},
				{Metric: "sleepHours", Operator: types.OpLT, Value: 6, Combinator: types.CombinatorOr},
			},
			actions: []types.RuleAction{
				{Type: types.ActionAddProtocol, ProtocolIDs: []uuid.UUID{protocolIDs["Box Breathing"], protocolIDs["Legs Up The Wall"]}},
			},
		},
		{
			name:     "Elevated muscle tension",
			priority: 80,
			conditions: []types.RuleCondition{
				{Metric: "stiffness", Operator: types.OpGTE, Value: 7},
				{Metric: "soreness", Operator: types.OpGTE, Value: 7, Combinator: types.CombinatorOr},
			},
			actions: []types.RuleAction{
				{Type: types.ActionAddProtocol, ProtocolTags: []string{"soreness", "stiffness"}},
			},
		},
		{
			name:     "Workload spike flush",
			priority: 70,
			conditions: []types.RuleCondition{
				{Metric: "acuteChronic", Operator: types.OpGT, Value: 1.3},
			},
			actions: []types.RuleAction{
				{Type: types.ActionAddProtocol, ProtocolIDs: []uuid.UUID{protocolIDs["Easy Spin Flush"]}},
			},
		},
	} {
		if byName[def.name] {
			continue
		}
		conditions, err := types.EncodeConditions(def.conditions)
		if err != nil {
			log.Fatal("Failed to encode conditions", "rule", def.name, "error", err)
		}
		actions, err := types.EncodeActions(def.actions)
		if err != nil {
			log.Fatal("Failed to encode actions", "rule", def.name, "error", err)
		}
		rule := &types.Rule{
			ID:         uuid.New(),
			Name:       def.name,
			Enabled:    true,
			Priority:   def.priority,
			Conditions: conditions,
			Actions:    actions,
		}
		if _, err := rules.Create(ctx, nil, rule); err != nil {
			log.Fatal("Failed to seed rule", "name", def.name, "error", err)
		}
	}
}
