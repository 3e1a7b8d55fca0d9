// Package domain holds the shared data model consumed across the query
// pipeline: queries, characters, corpora, routing decisions, and the
// intermediate shapes that flow between the orchestrator and the per-source
// retrieval engines.
package domain

import "time"

// Tool identifies one of the three fixed knowledge sources.
type Tool string

const (
	ToolCharacterData Tool = "character_data"
	ToolSessionNotes  Tool = "session_notes"
	ToolRulebook      Tool = "rulebook"
)

// RoutingSource records whether a routing decision came from the local
// classifier or the LLM router.
type RoutingSource string

const (
	RoutingSourceLocal RoutingSource = "local"
	RoutingSourceLLM   RoutingSource = "llm"
)

// MatchStrategy identifies which entity-matching strategy produced a hit.
type MatchStrategy string

const (
	StrategyExact     MatchStrategy = "exact"
	StrategySubstring MatchStrategy = "substring"
	StrategyFuzzy     MatchStrategy = "fuzzy"
)

// Exchange is a single prior (query, answer) pair carried in session history.
type Exchange struct {
	Query  string
	Answer string
}

// Query is the immutable input to a single pipeline run.
type Query struct {
	Text          string
	CharacterName string
	// SessionHistory holds prior exchanges, oldest first, capped at 10.
	SessionHistory []Exchange
}

// Entity is an extracted mention. Entities carry no source tag and no
// attribute map — resolution against sources happens downstream in C1.
type Entity struct {
	Name       string
	Confidence float64
}

// ToolIntention pairs a tool with the intention selected for it and the
// routing confidence for that pairing.
type ToolIntention struct {
	Tool       Tool
	Intention  string
	Confidence float64
}

// RoutingDecision is the output of either the local classifier or the LLM
// router: which tools to consult, with which intention, plus any entities
// extracted alongside the routing call.
type RoutingDecision struct {
	ToolsNeeded []ToolIntention
	Entities    []Entity
	Source      RoutingSource
	Abstained   bool
}

// EntityMatch is a single hit for an entity within one source/section.
type EntityMatch struct {
	SourceTool  Tool
	SectionPath string
	MatchedText string
	Strategy    MatchStrategy
	Confidence  float64
}

// EntitySearchResult collects every match found for one entity name across
// every selected source. Matches are never filtered down to a "primary" one.
type EntitySearchResult struct {
	EntityName string
	Matches    []EntityMatch
}

// ToolQueryInput is handed to a per-tool retriever (C2/C3/C4).
type ToolQueryInput struct {
	Tool               Tool
	Intention          string
	Entities           []string
	AutoIncludeSections []string
}

// AssembledContext is the final prompt-ready context handed to the final
// answer LLM call.
type AssembledContext struct {
	Primary       string
	Supporting    string
	CharacterSlice string
	RulesSlice     string
	SessionSlice   string
	CrossRefs      []string
	Confidence     float64
}

// MetadataEventKind discriminates the tagged union of metadata events.
type MetadataEventKind string

const (
	MetadataRouting        MetadataEventKind = "routing"
	MetadataEntities       MetadataEventKind = "entities"
	MetadataContextSources MetadataEventKind = "context_sources"
	MetadataPerformance    MetadataEventKind = "performance"
)

// MetadataEvent is one entry in the ordered metadata stream emitted per
// query: routing, entities, context_sources, then performance.
type MetadataEvent struct {
	Kind      MetadataEventKind
	Routing   *RoutingDecision
	Entities  map[string][]EntitySearchResult
	Sources   []string
	StageMS   map[string]int64
}

// ── Character (input) ───────────────────────────────────────────────────────

// CharacterBase holds the always-present identity fields of a character.
type CharacterBase struct {
	Name        string
	Race        string
	Class       string
	TotalLevel  int
	Alignment   string
	Background  string
}

// AbilityScores holds the six required ability scores.
type AbilityScores struct {
	STR, DEX, CON, INT, WIS, CHA int
}

// CombatStats holds the always-present combat statistics.
type CombatStats struct {
	MaxHP           int
	ArmorClass      int
	InitiativeBonus int
	Speed           int
	HitDice         string
}

// Character is the full input aggregate. Required fields are always
// present; optional sections are either absent (nil) or fully formed —
// never partially populated.
type Character struct {
	Base        CharacterBase
	Abilities   AbilityScores
	Combat      CombatStats

	Inventory                []InventoryItem
	SpellList                []Spell
	SpellcastingInfo         *SpellcastingInfo
	ActionEconomy            *ActionEconomy
	FeaturesAndTraits        []Feature
	BackgroundInfo           *string
	PersonalityTraits        *PersonalityTraits
	ProficienciesAndModifiers *ProficienciesAndModifiers
	PassiveScoresAndSenses   *PassiveScoresAndSenses
	Backstory                *string
	Organizations            []string
	Allies                   []string
	Enemies                  []string
	Objectives               []string
}

// InventoryItem is one entry in a character's inventory.
type InventoryItem struct {
	Name     string
	Quantity int
	Notes    string
}

// Spell is one known or prepared spell.
type Spell struct {
	Name  string
	Level int
	Notes string
}

// SpellcastingInfo describes a character's spellcasting resources.
type SpellcastingInfo struct {
	Ability       string
	SaveDC        int
	AttackBonus   int
	SlotsByLevel  map[int]int
}

// ActionEconomy lists a character's actions, bonus actions, and reactions.
type ActionEconomy struct {
	Actions      []string
	BonusActions []string
	Reactions    []string
}

// Feature is a class/racial/background feature or trait.
type Feature struct {
	Name   string
	Source string
	Text   string
}

// PersonalityTraits holds free-text roleplay hooks.
type PersonalityTraits struct {
	Traits string
	Ideals string
	Bonds  string
	Flaws  string
}

// ProficienciesAndModifiers holds skill/save proficiencies and their bonuses.
type ProficienciesAndModifiers struct {
	SkillProficiencies map[string]int
	SaveProficiencies  map[string]int
}

// PassiveScoresAndSenses holds passive perception/investigation/insight and senses.
type PassiveScoresAndSenses struct {
	PassivePerception    int
	PassiveInvestigation int
	PassiveInsight       int
	Senses               []string
}

// ── Rulebook corpus ──────────────────────────────────────────────────────────

// Section is one node in the rulebook's tree. Exactly one parent (nil for
// the root); children order is preserved; leaf sections hold substantive
// text.
type Section struct {
	ID         string
	Title      string
	Level      int // 1..4
	Content    string
	ParentID   *string
	ChildrenIDs []string
	Categories []int // subset of 1..10
	Vector     []float32
}

// IsLeaf reports whether s has no children.
func (s Section) IsLeaf() bool {
	return len(s.ChildrenIDs) == 0
}

// ── Session corpus ───────────────────────────────────────────────────────────

// SessionNote is one recap entry. SessionNumber uniquely identifies it and
// defines chronological order.
type SessionNote struct {
	SessionNumber int
	Date          time.Time
	Title         string
	Summary       string
	KeyEvents     []string
	NPCs          map[string]string   // name -> interaction summary
	Locations     []string
	Encounters    []string
	SpellsUsed    []string
	Items         []string
	Decisions     map[string][]string // character -> decisions
	Quotes        []string
	Cliffhanger   string

	SummaryEmbedding []float32
	EventEmbeddings  []EventEmbedding
}

// EventEmbedding pairs one key event's text with its embedding vector.
type EventEmbedding struct {
	Text   string
	Vector []float32
}

// ── Per-tool retrieval results ───────────────────────────────────────────────

// SessionSearchResult is one hit returned by the session-notes retriever.
type SessionSearchResult struct {
	SessionNumber int
	SnippetID     string
	Snippet       string
	Score         float64
	FromStructured bool
}

// RulebookHit is one scored candidate returned by the rulebook retriever.
type RulebookHit struct {
	SectionID string
	Score     float64
}

// CharacterSlice is the shaped character output of C2.
type CharacterSlice struct {
	Sections map[string]any
}
