package auth

import "context"

// Chain runs the human stage and then the machine stage, threading the human
// token into the machine strategy as its prior token.
//
// Either stage may be nil. With both nil, Login returns an empty token and
// all store calls proceed anonymously.
type Chain struct {
	Human   Strategy
	Machine Strategy
}

// NewChain creates a chain from the two optional stages.
func NewChain(human, machine Strategy) *Chain {
	return &Chain{Human: human, Machine: machine}
}

// Login runs the configured stages in order and returns the final token.
func (c *Chain) Login(ctx context.Context, appName string) (Token, error) {
	var token Token

	if c.Human != nil {
		t, err := c.Human.Login(ctx, "", appName)
		if err != nil {
			return "", err
		}
		token = t
	}

	if c.Machine != nil {
		t, err := c.Machine.Login(ctx, token, appName)
		if err != nil {
			return "", err
		}
		token = t
	}

	return token, nil
}

// Stages returns the names of the configured stages in execution order.
func (c *Chain) Stages() []string {
	var names []string
	if c.Human != nil {
		names = append(names, c.Human.Name())
	}
	if c.Machine != nil {
		names = append(names, c.Machine.Name())
	}
	return names
}
