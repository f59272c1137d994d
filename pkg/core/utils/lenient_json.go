package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Strategy names which decoder accepted the input in SmartParse.
type Strategy string

const (
	StrategyJSON     Strategy = "json"
	StrategyRepaired Strategy = "repaired"
	StrategyHJSON    Strategy = "hjson"
)

// RepairJSON fixes common hand-editing mistakes: missing quotes around keys,
// single quotes, trailing commas, comments and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson supports comments, unquoted keys and strings, optional commas and
// multiline strings.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(jsonBytes), nil
}

// SmartParse decodes input into v, trying in order:
// 1. Standard JSON
// 2. JSON repair
// 3. Hjson (most lenient)
func SmartParse(input string, v interface{}) (Strategy, error) {
	// Try 1: Standard JSON
	firstErr := json.Unmarshal([]byte(input), v)
	if firstErr == nil {
		return StrategyJSON, nil
	}

	// Try 2: JSON Repair
	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return StrategyRepaired, nil
		}
	}

	// Try 3: Hjson
	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), v); err == nil {
			return StrategyHJSON, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed: %w", firstErr)
}
