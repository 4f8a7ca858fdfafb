package responder

import (
	"context"
	"strings"
)

// Topic names the rule that produced a canned reply.
type Topic string

const (
	TopicAnxiety    Topic = "anxiety"
	TopicSleep      Topic = "sleep"
	TopicConnection Topic = "connection"
	TopicSelfCare   Topic = "self-care"
	TopicExpecting  Topic = "expecting"
	TopicGeneral    Topic = "general"
)

type rule struct {
	topic    Topic
	keywords []string
	reply    string
}

// rules are evaluated in order; the first keyword hit wins.
var rules = []rule{
	{
		topic:    TopicAnxiety,
		keywords: []string{"anxiety", "anxious", "worried"},
		reply: "I hear you, mama. Anxiety is so common in motherhood - you're not alone in feeling this way. " +
			"It's completely normal to worry about doing things 'right.' Remember: there's no perfect mother, " +
			"but there are a million ways to be a great one. Take deep breaths, trust your instincts, and be gentle " +
			"with yourself. What specific worries are weighing on you today? 💙",
	},
	{
		topic:    TopicSleep,
		keywords: []string{"sleep", "tired", "exhausted"},
		reply: "Oh sweet mama, sleep deprivation is one of the hardest parts of motherhood. Your exhaustion is valid, " +
			"and it's okay to feel overwhelmed. Remember: this phase won't last forever, even though it feels endless " +
			"right now. Try to rest when baby rests, accept help when offered, and know that 'good enough' parenting " +
			"on little sleep is still wonderful parenting. You're doing better than you think! 🌙✨",
	},
	{
		topic:    TopicConnection,
		keywords: []string{"support", "lonely", "alone"},
		reply: "You're so brave for reaching out, and I want you to know that you're never truly alone in this journey. " +
			"Motherhood can feel isolating, but there's a whole community of mamas who understand exactly what you're " +
			"going through. Your feelings are valid, your struggles are real, and your strength is incredible. I'm here " +
			"to listen whenever you need. What's been the hardest part lately? 💕",
	},
	{
		topic:    TopicSelfCare,
		keywords: []string{"self-care", "me time", "overwhelmed"},
		reply: "Self-care isn't selfish, mama - it's essential! Even 5-10 minutes can make a difference. Try: a warm cup " +
			"of tea while it's still hot, a few deep breaths on the porch, a quick face mask during naptime, or even just " +
			"sitting in your car for a moment of quiet. You deserve care and kindness, especially from yourself. What " +
			"small thing could you do for yourself today? ☕💆‍♀️",
	},
	{
		topic:    TopicExpecting,
		keywords: []string{"preparing", "expecting", "pregnant"},
		reply: "What an exciting and sometimes overwhelming time! Preparing for motherhood is both magical and " +
			"nerve-wracking. Trust that your body knows what to do, and your heart will guide you. Read what feels " +
			"helpful, but don't feel pressured to have everything figured out. The most important thing is love - and " +
			"you already have that in abundance. What aspects of becoming a mom feel most exciting or scary to you? 🤱💖",
	},
}

// FallbackReply is returned when no rule matches.
const FallbackReply = "Thank you for sharing with me, beautiful. Whatever you're going through, please know that your " +
	"feelings are valid and you're doing better than you think. Motherhood is the hardest job in the world, and " +
	"you're handling it with such grace. I'm here to listen and support you however I can. Tell me more about " +
	"what's on your mind today. 💕"

// RuleResponder answers from a fixed, ordered keyword table. It does no I/O.
type RuleResponder struct{}

// NewRuleResponder returns the local rule matcher.
func NewRuleResponder() *RuleResponder {
	return &RuleResponder{}
}

// Generate implements Responder. It never fails.
func (r *RuleResponder) Generate(_ context.Context, utterance string) (string, error) {
	_, reply := r.Match(utterance)
	return reply, nil
}

// Match returns the topic and reply for an utterance.
func (r *RuleResponder) Match(utterance string) (Topic, string) {
	normalized := strings.ToLower(utterance)
	for _, rl := range rules {
		for _, word := range rl.keywords {
			if strings.Contains(normalized, word) {
				return rl.topic, rl.reply
			}
		}
	}
	return TopicGeneral, FallbackReply
}

var _ Responder = (*RuleResponder)(nil)
