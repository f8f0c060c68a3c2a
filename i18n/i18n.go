// Package i18n holds the user facing messages of the application.
// French is the default language; English is provided for API clients.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "fr"

type langKey struct{}

var messages = map[string]map[string]string{
	"fr": {
		"required":              "Requis",
		"invalid_email":         "Adresse e-mail invalide",
		"too_long":              "Trop long",
		"must_be_positive":      "Doit être positif",
		"invalid_choice":        "Valeur non autorisée",
		"invalid_json":          "Corps de requête JSON invalide",
		"validation_failed":     "Certains champs sont invalides",
		"missing_params":        "Paramètres manquants",
		"duplicate_transaction": "Ce numéro de transaction a déjà été utilisé",
		"not_found":             "Soumission introuvable",
		"not_unlocked":          "Le PDF n'est pas encore débloqué",
		"invalid_action":        "Action invalide",
		"unauthorized":          "Authentification requise",
		"forbidden":             "Accès refusé",
		"super_admin_required":  "Seul un super-administrateur peut supprimer une soumission",
		"invalid_credentials":   "E-mail ou mot de passe incorrect",
		"internal_error":        "Erreur interne du serveur",
		"unknown_letter_type":   "Type de lettre inconnu",
		"submission_created":    "Soumission créée avec succès",
		"submission_validated":  "Paiement validé, PDF débloqué",
		"submission_rejected":   "Soumission refusée",
		"submission_deleted":    "Soumission supprimée",
		"status.en_attente":     "En attente",
		"status.valide":         "Validé",
		"status.refuse":         "Refusé",
		"status.tous":           "Tous",
		"tier.standard":         "Standard",
		"tier.premium":          "Premium",
		"nav.home":              "Accueil",
		"nav.types":             "Modèles de lettres",
		"nav.admin":             "Administration",
		"nav.stats":             "Statistiques",
		"nav.logout":            "Déconnexion",
		"action.validate":       "Valider",
		"action.reject":         "Refuser",
		"action.delete":         "Supprimer",
		"action.view":           "Voir",
		"action.download":       "Télécharger le PDF",
		"new_submission":        "Nouvelle soumission reçue",
		"nav.accounts":          "Comptes",
		"account_updated":       "Compte mis à jour",
		"account_created":       "Compte créé",
		"account_exists":        "Un compte existe déjà avec cet e-mail",
		"cannot_change_self":    "Vous ne pouvez pas modifier votre propre compte",
		"nav.products":          "Tarifs",
		"nav.profiles":          "Profils",
		"product_updated":       "Tarif mis à jour",
		"profile_updated":       "Profil mis à jour",
		"system_profile":        "Les profils système ne sont pas modifiables",
		"profile_has_users":     "Ce profil est encore attribué à des comptes",
		"name_already_exists":   "Ce nom existe déjà",
		"invalid_form":          "Formulaire invalide",
		"nav.password":          "Mot de passe",
		"password_current_bad":  "Mot de passe actuel incorrect",
		"password_mismatch":     "Le nouveau mot de passe doit faire 8 caractères et être confirmé",
		"password_saved":        "Mot de passe modifié",
	},
	"en": {
		"required":              "Required",
		"invalid_email":         "Invalid email address",
		"too_long":              "Too long",
		"must_be_positive":      "Must be positive",
		"invalid_choice":        "Value not allowed",
		"invalid_json":          "Invalid JSON body",
		"validation_failed":     "Some fields are invalid",
		"missing_params":        "Missing parameters",
		"duplicate_transaction": "This transaction reference has already been used",
		"not_found":             "Submission not found",
		"not_unlocked":          "The PDF is not unlocked yet",
		"invalid_action":        "Invalid action",
		"unauthorized":          "Authentication required",
		"forbidden":             "Access denied",
		"super_admin_required":  "Only a super administrator can delete a submission",
		"invalid_credentials":   "Wrong email or password",
		"internal_error":        "Internal server error",
		"unknown_letter_type":   "Unknown letter type",
		"submission_created":    "Submission created",
		"submission_validated":  "Payment validated, PDF unlocked",
		"submission_rejected":   "Submission rejected",
		"submission_deleted":    "Submission deleted",
		"status.en_attente":     "Pending",
		"status.valide":         "Validated",
		"status.refuse":         "Rejected",
		"status.tous":           "All",
		"tier.standard":         "Standard",
		"tier.premium":          "Premium",
		"nav.home":              "Home",
		"nav.types":             "Letter templates",
		"nav.admin":             "Administration",
		"nav.stats":             "Statistics",
		"nav.logout":            "Log out",
		"action.validate":       "Validate",
		"action.reject":         "Reject",
		"action.delete":         "Delete",
		"action.view":           "View",
		"action.download":       "Download PDF",
		"new_submission":        "New submission received",
		"nav.accounts":          "Accounts",
		"account_updated":       "Account updated",
		"account_created":       "Account created",
		"account_exists":        "An account already uses this email",
		"cannot_change_self":    "You cannot change your own account",
		"nav.products":          "Prices",
		"nav.profiles":          "Profiles",
		"product_updated":       "Price updated",
		"profile_updated":       "Profile updated",
		"system_profile":        "System profiles cannot be changed",
		"profile_has_users":     "This profile is still assigned to accounts",
		"name_already_exists":   "This name already exists",
		"invalid_form":          "Invalid form",
		"nav.password":          "Password",
		"password_current_bad":  "Current password is wrong",
		"password_mismatch":     "The new password needs 8 characters and a matching confirmation",
		"password_saved":        "Password changed",
	},
}

// T translates code into lang. Unknown languages use French and unknown
// codes are returned unchanged.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Supported reports whether lang has a message table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// DetectLanguage picks the language from an Accept-Language header. Only
// the first entry is considered.
func DetectLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	base, _, _ := strings.Cut(strings.TrimSpace(first), "-")
	base = strings.ToLower(base)
	if Supported(base) {
		return base
	}
	return DefaultLang
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}
