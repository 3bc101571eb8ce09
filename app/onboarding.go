package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var errOnboardingDeclined = errors.New("onboarding declined")

type onboardingAnswer uint8

const (
	answerContinue onboardingAnswer = iota + 1
	answerContinueAndSkip
	answerDecline
)

// keyOnboarding shows viewer instructions and waits for the user's answer,
// which the frame loop feeds in from keyboard or pointer input.
type keyOnboarding struct {
	log *zap.Logger

	mu      sync.Mutex
	waiting chan onboardingAnswer
}

func newKeyOnboarding(log *zap.Logger) *keyOnboarding {
	return &keyOnboarding{log: log}
}

// Show implements vrmode.Onboarding.
func (k *keyOnboarding) Show(ctx context.Context) (bool, error) {
	ch := make(chan onboardingAnswer, 1)
	k.mu.Lock()
	k.waiting = ch
	k.mu.Unlock()
	defer func() {
		k.mu.Lock()
		k.waiting = nil
		k.mu.Unlock()
	}()

	k.log.Info("place the phone in the viewer, then press Enter or click to start " +
		"(Space: start and don't show again, Esc: cancel)")

	select {
	case a := <-ch:
		switch a {
		case answerDecline:
			return false, errOnboardingDeclined
		case answerContinueAndSkip:
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// pending reports whether Show is waiting for an answer.
func (k *keyOnboarding) pending() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.waiting != nil
}

// answer delivers a to a waiting Show. It reports whether one was waiting.
func (k *keyOnboarding) answer(a onboardingAnswer) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.waiting == nil {
		return false
	}
	select {
	case k.waiting <- a:
	default:
	}
	return true
}
