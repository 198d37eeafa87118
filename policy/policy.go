// Package policy builds IAM policy documents as plain Go values.
//
// The structs marshal to the JSON an iam.Role or iam.RolePolicy property
// expects. Values stay plain strings so documents can be composed inside
// an Apply over resolved ARNs and asserted in unit tests.
package policy

import (
	"encoding/json"
	"fmt"
)

// Version is the policy language version every document here uses.
const Version = "2012-10-17"

// Document is an IAM policy document.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one IAM policy statement.
type Statement struct {
	Sid       string                    `json:"Sid,omitempty"`
	Effect    string                    `json:"Effect"`
	Principal any                       `json:"Principal,omitempty"`
	Action    []string                  `json:"Action"`
	Resource  []string                  `json:"Resource,omitempty"`
	Condition map[string]map[string]any `json:"Condition,omitempty"`
}

// ServicePrincipal serializes to the {"Service": "..."} principal form.
type ServicePrincipal string

// MarshalJSON implements the principal encoding.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Service": string(p)})
}

// Allow builds an Allow statement over the given actions and resources.
func Allow(actions []string, resources []string) Statement {
	return Statement{
		Effect:   "Allow",
		Action:   actions,
		Resource: resources,
	}
}

// New wraps statements in a versioned document.
func New(statements ...Statement) Document {
	return Document{
		Version:   Version,
		Statement: statements,
	}
}

// AssumedBy is the trust document letting the given service assume a role.
// ECS tasks use "ecs-tasks.amazonaws.com".
func AssumedBy(service string) Document {
	return New(Statement{
		Effect:    "Allow",
		Principal: ServicePrincipal(service),
		Action:    []string{"sts:AssumeRole"},
	})
}

// Render marshals the document to the JSON string IAM properties expect.
func (d Document) Render() (string, error) {
	if len(d.Statement) == 0 {
		return "", fmt.Errorf("policy: document has no statements")
	}
	for i, s := range d.Statement {
		if s.Effect != "Allow" && s.Effect != "Deny" {
			return "", fmt.Errorf("policy: statement %d has effect %q", i, s.Effect)
		}
		if len(s.Action) == 0 {
			return "", fmt.Errorf("policy: statement %d has no actions", i)
		}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("policy: marshal document: %w", err)
	}
	return string(data), nil
}
