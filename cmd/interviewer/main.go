// Command interviewer runs a console mock-interview session against the
// turn engine: read a line, execute a turn, speak the reply. It is the
// development harness for the orchestration core; the production voice
// layer drives the same Orchestrator facade.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"interviewer/pkg/config"
	"interviewer/pkg/exec"
	"interviewer/pkg/interview"
	"interviewer/pkg/llm"
	"interviewer/pkg/logx"
	"interviewer/pkg/metrics"
	"interviewer/pkg/persistence"
	"interviewer/pkg/state"
	"interviewer/pkg/webapi"
)

func main() {
	var (
		projectDir = flag.String("projectdir", ".", "Project directory holding config and database")
		resumeID   = flag.Int64("resume", 0, "Interview ID to resume from its latest checkpoint")
		userID     = flag.Int64("user", 1, "User ID to record the interview under")
		jobFile    = flag.String("job", "", "Path to a job description text file")
		provider   = flag.String("provider", "", "Override the configured LLM provider")
		local      = flag.Bool("local", false, "Run submitted code locally instead of in containers (development only)")
		setSecrets = flag.Bool("set-secrets", false, "Prompt for API keys and store them encrypted")
		listenAddr = flag.String("listen", "", "Address for the health/metrics/status HTTP server (e.g. :8088, empty disables)")
		promURL    = flag.String("prometheus", "", "Prometheus base URL for per-interview metrics queries (requires -listen)")
	)
	flag.Parse()

	if err := run(*projectDir, *resumeID, *userID, *jobFile, *provider, *listenAddr, *promURL, *local, *setSecrets); err != nil {
		fmt.Fprintf(os.Stderr, "interviewer: %v\n", err)
		os.Exit(1)
	}
}

//nolint:cyclop // Top-level wiring is linear setup, not branching logic
func run(projectDir string, resumeID, userID int64, jobFile, providerOverride, listenAddr, prometheusURL string, local, setSecrets bool) error {
	logger := logx.NewLogger("interviewer-cli")

	if err := config.LoadConfig(projectDir); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	if setSecrets {
		return promptAndStoreSecrets(projectDir)
	}

	if config.SecretsFileExists(projectDir) {
		if err := unlockSecrets(projectDir); err != nil {
			logger.Warn("could not unlock secrets file, falling back to environment: %v", err)
		}
	}

	if providerOverride != "" {
		cfg.LLM.Provider = providerOverride
	}

	conversationClient, analysisClient, err := buildClients(&cfg.LLM)
	if err != nil {
		return err
	}

	db, err := persistence.InitializeDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var runner *exec.Runner
	if local || cfg.Sandbox.AllowLocal {
		runner = exec.NewLocalRunner(cfg.Sandbox.ExecutionTimeout)
	} else {
		runner = exec.NewDockerRunner(cfg.Sandbox.PythonImage, cfg.Sandbox.NodeImage, cfg.Sandbox.ExecutionTimeout)
	}

	personas, err := config.LoadPersonas(projectDir)
	if err != nil {
		logger.Debug("no persona roster loaded: %v", err)
	}

	driver := interview.NewDriver(interview.DriverOptions{
		ConversationClient: conversationClient,
		AnalysisClient:     analysisClient,
		Runner:             runner,
		Recorder:           metrics.NewPrometheusRecorder(),
		Pacing:             cfg.Interview,
		Personas:           personas,
	})
	orchestrator := interview.NewOrchestrator(driver, db)

	if listenAddr != "" {
		server := webapi.NewServer(db)
		if prometheusURL != "" {
			if err := server.EnableMetricsQuery(prometheusURL); err != nil {
				return fmt.Errorf("failed to configure metrics backend: %w", err)
			}
		}
		serverCtx, stopServer := context.WithCancel(context.Background())
		defer stopServer()
		if err := server.StartServer(serverCtx, listenAddr); err != nil {
			return fmt.Errorf("failed to start operational server: %w", err)
		}
	}

	session, err := openSession(orchestrator, db, resumeID, userID, jobFile)
	if err != nil {
		return err
	}

	archive, err := state.NewArchive(filepath.Join(projectDir, ".interviewer", "archive"))
	if err != nil {
		return err
	}

	return repl(orchestrator, archive, session, cfg.LLM.RequestTimeout)
}

func buildClients(llmCfg *config.LLMConfig) (conversation, analysis llm.Client, err error) {
	apiKey, keyErr := providerKey(llmCfg.Provider)
	if keyErr != nil && llmCfg.Provider != "ollama" && llmCfg.Provider != "mock" {
		return nil, nil, keyErr
	}

	conversation, err = llm.NewClient(llm.ClientOptions{
		Provider: llm.Provider(llmCfg.Provider),
		Model:    llmCfg.ConversationModel,
		APIKey:   apiKey,
		HostURL:  llmCfg.OllamaHost,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create conversation client: %w", err)
	}

	analysis, err = llm.NewClient(llm.ClientOptions{
		Provider: llm.Provider(llmCfg.Provider),
		Model:    llmCfg.AnalysisModel,
		APIKey:   apiKey,
		HostURL:  llmCfg.OllamaHost,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create analysis client: %w", err)
	}
	return conversation, analysis, nil
}

func providerKey(provider string) (string, error) {
	switch provider {
	case "anthropic":
		return config.GetSecret(config.SecretAnthropicKey)
	case "openai":
		return config.GetSecret(config.SecretOpenAIKey)
	case "google":
		return config.GetSecret(config.SecretGoogleKey)
	default:
		return "", nil
	}
}

// openSession either restores a checkpointed interview or creates a fresh
// one backed by a new database row.
func openSession(orchestrator *interview.Orchestrator, db *sql.DB, resumeID, userID int64, jobFile string) (state.InterviewState, error) {
	if resumeID != 0 {
		restored, err := orchestrator.Restore(resumeID)
		if err != nil {
			return state.InterviewState{}, fmt.Errorf("failed to resume interview %d: %w", resumeID, err)
		}
		fmt.Printf("Resumed interview %d at turn %d.\n\n", restored.InterviewID, restored.TurnCount)
		return restored, nil
	}

	var jobDescription string
	if jobFile != "" {
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return state.InterviewState{}, fmt.Errorf("failed to read job description: %w", err)
		}
		jobDescription = string(data)
	}

	interviewID, err := persistence.CreateInterview(db, userID, nil, jobDescription)
	if err != nil {
		return state.InterviewState{}, err
	}
	if err := persistence.UpdateInterviewStatus(db, interviewID, persistence.StatusInProgress); err != nil {
		return state.InterviewState{}, err
	}

	fmt.Printf("Started interview %d.\n\n", interviewID)
	return state.New(interviewID, userID, state.ResumeContext{}, jobDescription), nil
}

func repl(orchestrator *interview.Orchestrator, archive *state.Archive, session state.InterviewState, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	reader := bufio.NewReader(os.Stdin)

	// Opening turn: no input, produces the greeting.
	session, err := step(orchestrator, session, interview.StepInput{}, timeout)
	if err != nil {
		return err
	}

	for {
		fmt.Print("> ")
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)

		var input interview.StepInput
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/code"):
			code, language, codeErr := readCodeBlock(reader, strings.TrimSpace(strings.TrimPrefix(line, "/code")))
			if codeErr != nil {
				fmt.Printf("(%v)\n", codeErr)
				continue
			}
			input = interview.StepInput{Code: code, Language: language}
		default:
			input = interview.StepInput{UserResponse: line}
		}

		session, err = step(orchestrator, session, input, timeout)
		if err != nil {
			return err
		}

		if session.Feedback != nil && session.Phase == state.PhaseClosing && session.LastNode == state.NodeFinalizeTurn {
			printFeedback(session.Feedback)
			if archiveErr := archive.Save(&session); archiveErr != nil {
				fmt.Printf("(failed to archive session: %v)\n", archiveErr)
			}
		}
	}
}

func step(orchestrator *interview.Orchestrator, session state.InterviewState, input interview.StepInput, timeout time.Duration) (state.InterviewState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*timeout)
	defer cancel()

	next, err := orchestrator.ExecuteStep(ctx, session, input)
	if err != nil {
		return session, err
	}

	if msg := next.LastAssistantMessage(); msg != "" {
		fmt.Printf("\n%s\n\n", msg)
	}
	return next, nil
}

// readCodeBlock collects lines until a lone "." terminator.
func readCodeBlock(reader *bufio.Reader, language string) (code, lang string, err error) {
	if language == "" {
		language = "python"
	}
	fmt.Printf("Enter %s code, end with a single '.' on its own line:\n", language)

	var lines []string
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return "", "", fmt.Errorf("input closed mid-code-block")
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, strings.TrimRight(line, "\n"))
	}
	if len(lines) == 0 {
		return "", "", fmt.Errorf("empty code block")
	}
	return strings.Join(lines, "\n"), language, nil
}

func printFeedback(fb *state.Feedback) {
	fmt.Println("--- Interview feedback ---")
	fmt.Printf("Overall: %.2f\n", fb.OverallScore)
	fmt.Printf("  Communication:   %.2f\n", fb.Communication.Score)
	fmt.Printf("  Technical:       %.2f\n", fb.Technical.Score)
	fmt.Printf("  Problem solving: %.2f\n", fb.ProblemSolving.Score)
	fmt.Printf("  Code quality:    %.2f\n", fb.CodeQuality.Score)
	fmt.Println(fb.Narrative)
}

// promptAndStoreSecrets interactively collects API keys and writes them to
// the encrypted secrets file.
func promptAndStoreSecrets(projectDir string) error {
	names := []string{config.SecretAnthropicKey, config.SecretOpenAIKey, config.SecretGoogleKey}
	for _, name := range names {
		fmt.Printf("%s (leave empty to skip): ", name)
		value, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		if len(value) > 0 {
			config.SetSecret(name, string(value))
		}
	}

	fmt.Print("Encryption password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if err := config.SaveSecretsToFile(projectDir, string(password)); err != nil {
		return err
	}
	fmt.Println("Secrets stored.")
	return nil
}

func unlockSecrets(projectDir string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal")
	}
	fmt.Print("Secrets password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return err
	}
	return config.DecryptSecretsFile(projectDir, string(password))
}
