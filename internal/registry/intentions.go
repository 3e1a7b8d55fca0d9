package registry

// defaultCharacterIntentions is the fixed 10-member character_data enumeration.
func defaultCharacterIntentions() []CharacterIntention {
	return []CharacterIntention{
		{
			Name:             "character_basics",
			Description:      "Name, race, class, level, alignment, background.",
			RequiredSections: []string{"character_base"},
		},
		{
			Name:             "combat_info",
			Description:      "HP, AC, initiative, speed, hit dice, and available actions.",
			RequiredSections: []string{"ability_scores", "combat_stats", "action_economy"},
			OptionalSections: []string{"features_and_traits"},
		},
		{
			Name:             "abilities_info",
			Description:      "Ability scores and derived proficiency/save modifiers.",
			RequiredSections: []string{"ability_scores"},
			OptionalSections: []string{"proficiencies_and_modifiers", "passive_scores_and_senses"},
		},
		{
			Name:             "inventory_info",
			Description:      "Carried items and equipment.",
			RequiredSections: []string{"inventory"},
		},
		{
			Name:             "magic_info",
			Description:      "Known/prepared spells and spellcasting resources.",
			RequiredSections: []string{"spell_list", "spellcasting_info"},
		},
		{
			Name:             "story_info",
			Description:      "Backstory and long-form narrative background.",
			RequiredSections: []string{"backstory"},
			OptionalSections: []string{"background_info"},
		},
		{
			Name:             "social_info",
			Description:      "Relationships: organizations, allies, enemies.",
			RequiredSections: []string{"organizations", "allies", "enemies"},
		},
		{
			Name:             "progress_info",
			Description:      "Current objectives and advancement hooks.",
			RequiredSections: []string{"objectives"},
			OptionalSections: []string{"features_and_traits"},
		},
		{
			Name:        "full_character",
			Description: "Everything known about the character.",
			RequiredSections: []string{
				"character_base", "ability_scores", "combat_stats",
			},
			OptionalSections: []string{
				"inventory", "spell_list", "spellcasting_info", "action_economy",
				"features_and_traits", "background_info", "personality_traits",
				"proficiencies_and_modifiers", "passive_scores_and_senses",
				"backstory", "organizations", "allies", "enemies", "objectives",
			},
		},
		{
			Name:             "character_summary",
			Description:      "A compact one-paragraph summary for a heuristic fallback plan.",
			RequiredSections: []string{"character_base", "combat_stats"},
			OptionalSections: []string{"personality_traits"},
		},
	}
}

// defaultSessionIntentions is the fixed 20-member session_notes enumeration.
func defaultSessionIntentions() []SessionIntention {
	return []SessionIntention{
		{Name: "character_status", Description: "What state was a character left in.", Strategy: StrategyStructured},
		{Name: "event_sequence", Description: "What happened, in order.", Strategy: StrategyFused},
		{Name: "npc_info", Description: "Interactions with a named NPC.", Strategy: StrategyStructured},
		{Name: "location_details", Description: "Details about a visited location.", Strategy: StrategyStructured},
		{Name: "item_tracking", Description: "Where an item was found, used, or lost.", Strategy: StrategyStructured},
		{Name: "combat_recap", Description: "Recap of a fight.", Strategy: StrategyFused},
		{Name: "spell_ability_usage", Description: "When a spell or ability was used.", Strategy: StrategyStructured},
		{Name: "character_decisions", Description: "A decision a character made.", Strategy: StrategyStructured},
		{Name: "party_dynamics", Description: "Relationships and tension within the party.", Strategy: StrategySemantic},
		{Name: "quest_tracking", Description: "Status of an ongoing quest.", Strategy: StrategyFused},
		{Name: "puzzle_solutions", Description: "How a puzzle was solved.", Strategy: StrategySemantic},
		{Name: "loot_rewards", Description: "Rewards gained from an encounter.", Strategy: StrategyStructured},
		{Name: "death_revival", Description: "A character death or revival.", Strategy: StrategyStructured},
		{Name: "divine_religious", Description: "Divine or religious events.", Strategy: StrategySemantic},
		{Name: "memory_vision", Description: "A vision, dream, or recovered memory.", Strategy: StrategySemantic},
		{Name: "rules_mechanics", Description: "A ruling made during play.", Strategy: StrategyStructured},
		{Name: "humor_moments", Description: "A memorable joke or funny moment.", Strategy: StrategySemantic},
		{Name: "unresolved_mysteries", Description: "An open thread not yet resolved.", Strategy: StrategySemantic},
		{Name: "future_implications", Description: "Foreshadowing or planned consequences.", Strategy: StrategySemantic},
		{
			Name: "cross_session", Description: "Events spanning multiple sessions.",
			Strategy: StrategyFused, TemporalPolicy: "recent_n", RecentN: 5,
		},
	}
}

// defaultRulebookIntentions is the fixed 30-member rulebook enumeration.
// Categories are drawn from the fixed 1..10 category space.
func defaultRulebookIntentions() []RulebookIntention {
	return []RulebookIntention{
		{Name: "ability_checks", Description: "How ability checks work.", Categories: []int{1}, Strategy: StrategyDirect},
		{Name: "combat_actions", Description: "Actions available in combat.", Categories: []int{2}, Strategy: StrategyDirect},
		{Name: "combat_movement", Description: "Movement and positioning rules.", Categories: []int{2}, Strategy: StrategyDirect},
		{Name: "damage_and_healing", Description: "Damage types, resistance, healing.", Categories: []int{2}, Strategy: StrategySemantic},
		{Name: "conditions", Description: "Status condition definitions.", Categories: []int{2, 1}, Strategy: StrategyDirect},
		{Name: "spellcasting_rules", Description: "General spellcasting rules.", Categories: []int{3}, Strategy: StrategyDirect},
		{Name: "spell_lookup", Description: "A specific spell's text.", Categories: []int{3}, Strategy: StrategyDirect},
		{Name: "concentration", Description: "Concentration rules.", Categories: []int{3}, Strategy: StrategyDirect},
		{Name: "class_features", Description: "A class feature's rules text.", Categories: []int{4}, Strategy: StrategySemantic},
		{Name: "subclass_features", Description: "A subclass feature's rules text.", Categories: []int{4}, Strategy: StrategySemantic},
		{Name: "multiclassing", Description: "Multiclassing rules.", Categories: []int{4}, Strategy: StrategyDirect},
		{Name: "feats", Description: "A feat's rules text.", Categories: []int{4}, Strategy: StrategySemantic},
		{Name: "equipment_lookup", Description: "A specific item's stats.", Categories: []int{5}, Strategy: StrategyDirect},
		{Name: "magic_items", Description: "A magic item's rules text.", Categories: []int{5}, Strategy: StrategySemantic},
		{Name: "armor_and_weapons", Description: "Armor/weapon proficiency and stats.", Categories: []int{5}, Strategy: StrategyDirect},
		{Name: "encumbrance", Description: "Carrying capacity rules.", Categories: []int{5, 1}, Strategy: StrategyDirect},
		{Name: "skills_reference", Description: "A skill's definition and uses.", Categories: []int{1}, Strategy: StrategyDirect},
		{Name: "saving_throws", Description: "Saving throw rules.", Categories: []int{1, 2}, Strategy: StrategyDirect},
		{Name: "resting_rules", Description: "Short/long rest rules.", Categories: []int{6}, Strategy: StrategyDirect},
		{Name: "travel_and_exploration", Description: "Travel pace and exploration rules.", Categories: []int{6}, Strategy: StrategySemantic},
		{Name: "environmental_hazards", Description: "Environmental hazard rules.", Categories: []int{6, 2}, Strategy: StrategySemantic},
		{Name: "character_creation", Description: "Character creation rules.", Categories: []int{7}, Strategy: StrategyDirect},
		{Name: "leveling_up", Description: "Rules for gaining a level.", Categories: []int{7}, Strategy: StrategyDirect},
		{Name: "monster_stat_block", Description: "A monster's full stat block.", Categories: []int{8}, Strategy: StrategyDirect},
		{Name: "monster_abilities", Description: "A monster's special ability text.", Categories: []int{8}, Strategy: StrategySemantic},
		{Name: "encounter_building", Description: "Encounter difficulty and building rules.", Categories: []int{8, 6}, Strategy: StrategyDirect},
		{Name: "planes_and_cosmology", Description: "Planar and cosmology lore.", Categories: []int{9}, Strategy: StrategySemantic},
		{Name: "deities_and_pantheons", Description: "A deity's domain and lore.", Categories: []int{9}, Strategy: StrategySemantic},
		{Name: "optional_rules", Description: "Optional/variant rule modules.", Categories: []int{10}, Strategy: StrategyDirect},
		{Name: "glossary_lookup", Description: "A rules-term definition.", Categories: []int{10, 1}, Strategy: StrategyDirect},
	}
}
