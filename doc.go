// Package auth provides the authentication and authorization core for a
// multi-tenant academic records system: JWT session tokens, org-scoped
// credential verification, single-use password reset links, and a role-based
// policy engine over the academic resource hierarchy.
//
// Authentication:
//   - Auther verifies credentials scoped to an organization. Every failure -
//     unknown email, wrong password, deactivated account - surfaces the same
//     generic error so callers cannot probe which accounts exist.
//   - Accounts carrying a security question (the global admin) go through a
//     two-step challenge: a correct password yields the question instead of a
//     token, and VerifySecurity exchanges the answer for the session.
//
// Password reset:
//   - IssueResetToken embeds user_id and iat in a short-lived token. The
//     FinalizePasswordResetHandler consumes it exactly once: a per-account
//     watermark (reset_token_used_at) invalidates every token issued before
//     the last successful consumption, and the conditional update in
//     Users.ConsumeResetToken lets exactly one concurrent consumer win.
//
// Authorization:
//   - Engine dispatches Authorize and Scope per resource kind. Scopes answer
//     both in memory (Contains) and as bun query criteria (Apply), and "show"
//     is derived from the scope so a visible record is always showable.
//   - A rule the matrix does not define is a configuration fault
//     (ErrPolicyNotDefined, logged at error severity), never a silent deny.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     lifecycle, and the command handlers to describe login, password, and
//     account events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package auth
