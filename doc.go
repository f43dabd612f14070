// Package settingsync keeps a user's application settings consistent between
// a local store and the Apex settings service.
//
// Local edits are applied through [Client.Apply]: they take effect
// immediately, survive restarts in a durable change queue, and propagate to
// the server in batched sync cycles. Divergent edits from other devices are
// detected per key and either resolved automatically or surfaced as
// [models.Conflict] values for the user to decide via
// [Client.ResolveConflict]. A performance recorder tracks sync latency,
// conflict rates, and storage pressure, raising alerts when thresholds are
// crossed.
//
// A minimal session:
//
//	client, err := settingsync.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.SetToken(sessionToken)
//	client.Start(ctx)
//
//	client.Apply(ctx, models.SettingTypeProfile, "theme",
//		json.RawMessage(`"system"`), json.RawMessage(`"dark"`))
package settingsync
