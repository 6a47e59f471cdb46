package bot

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"hopper/internal/directory"
)

// dailyJob refreshes the activity roles and then the line-up.
func (bot *Bot) dailyJob(ctx context.Context) {
	bot.syncLevelRoles(ctx)
	bot.TriggerRoster(ctx)
}

func (bot *Bot) levelRoles() map[directory.Level]string {
	return map[directory.Level]string{
		directory.LevelCasual: bot.cfg.Roles.Casual,
		directory.LevelFan:    bot.cfg.Roles.Fan,
		directory.LevelUltra:  bot.cfg.Roles.Ultra,
	}
}

// RoleChanges computes how to move a member with roles current onto the role
// of level. The roles of the other levels are removed.
func RoleChanges(current []string, level directory.Level, roles map[directory.Level]string) (add string, remove []string) {
	for l, role := range roles {
		if role == "" {
			continue
		}
		has := slices.Contains(current, role)
		switch {
		case l == level && !has:
			add = role
		case l != level && has:
			remove = append(remove, role)
		}
	}
	slices.Sort(remove)
	return add, remove
}

// syncLevelRoles gives every profiled member exactly one activity role.
func (bot *Bot) syncLevelRoles(ctx context.Context) {
	guildID := bot.cfg.GuildID
	roles := bot.levelRoles()
	for _, role := range roles {
		if role == "" {
			log.Debug().Msg("Activity roles not configured, skipping")
			return
		}
	}

	profiles, err := bot.store.Profiles(ctx, guildID)
	if err != nil {
		log.Error().Err(err).Msg("Could not load profiles for activity roles")
		return
	}
	changed := 0
	for _, profile := range profiles {
		member, err := bot.platform.Member(guildID, profile.UserID)
		if err != nil || member == nil || member.User == nil || member.User.Bot {
			continue
		}
		level, err := bot.store.Level(ctx, profile.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user", profile.UserID).Msg("Could not compute level")
			continue
		}
		add, remove := RoleChanges(member.Roles, level, roles)
		for _, role := range remove {
			if err := bot.platform.RemoveRole(guildID, profile.UserID, role); err != nil {
				log.Warn().Err(err).Str("user", profile.UserID).Str("role", role).Msg("Could not remove activity role")
			}
		}
		if add != "" {
			if err := bot.platform.AddRole(guildID, profile.UserID, add); err != nil {
				log.Warn().Err(err).Str("user", profile.UserID).Str("role", add).Msg("Could not add activity role")
			}
		}
		if add != "" || len(remove) > 0 {
			changed++
		}
	}
	log.Info().Int("profiles", len(profiles)).Int("changed", changed).Msg("Activity roles synced")
}
