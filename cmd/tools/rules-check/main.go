// cmd/tools/rules-check/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
	"mental-triage/internal/triage/analysis"
	"mental-triage/internal/triage/rules"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	summaryCmd := flag.NewFlagSet("summary", flag.ExitOnError)
	assessCmd := flag.NewFlagSet("assess", flag.ExitOnError)

	validatePath := validateCmd.String("path", "", "Path to rules YAML (empty = embedded default)")
	summaryPath := summaryCmd.String("path", "", "Path to rules YAML (empty = embedded default)")
	assessPath := assessCmd.String("path", "", "Path to rules YAML (empty = embedded default)")
	answersPath := assessCmd.String("answers", "", "Path to a JSON object of question id -> answer")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if _, err := load(*validatePath); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Rules are valid.")

	case "summary":
		summaryCmd.Parse(os.Args[2:])
		rs, err := load(*summaryPath)
		if err != nil {
			fmt.Printf("Error loading rules: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(rs.Summary(), "", "  ")
		fmt.Println(string(out))

	case "assess":
		assessCmd.Parse(os.Args[2:])
		if *answersPath == "" {
			fmt.Println("Error: answers is required for assess.")
			assessCmd.Usage()
			os.Exit(1)
		}
		if err := assess(*assessPath, *answersPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	default:
		help()
		os.Exit(1)
	}
}

func load(path string) (*rules.RuleSet, error) {
	return rules.Load(path)
}

// assess runs the rule engine over a saved answer set and prints the report.
func assess(rulesPath, answersPath string) error {
	rs, err := load(rulesPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(answersPath)
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	var responses models.Responses
	if err := json.Unmarshal(data, &responses); err != nil {
		return fmt.Errorf("parse answers: %w", err)
	}

	engine := analysis.NewRuleEngine(rs)
	assessment, err := engine.Assess(responses)
	if err != nil {
		return err
	}
	fmt.Printf("Symptoms: %v\n", assessment.Symptoms.List())
	fmt.Printf("Urgency total: %d (overridden: %t)\n\n", assessment.Urgency.Total, assessment.Urgency.Overridden)

	pipeline := analysis.NewPipeline(engine, analysis.NewValidator(nil), logger.NewNoOpLogger())
	result, err := pipeline.Analyze(context.Background(), responses)
	if err != nil {
		return err
	}
	fmt.Println(analysis.FormatReport(result))
	return nil
}

func help() {
	fmt.Println("Usage: rules-check <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Load and validate a rules file")
	fmt.Println("  summary   Print counts per rule table")
	fmt.Println("  assess    Score a JSON answer set and print the report")
}
