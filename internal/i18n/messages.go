package i18n

func m(en, fr string) map[Language]string {
	return map[Language]string{EN: en, FR: fr}
}

var messages = map[string]map[Language]string{
	// navigation
	"navHome":        m("Home", "Accueil"),
	"navArticles":    m("Archives & Editions", "Archives & Éditions"),
	"navSubmit":      m("Submit Paper", "Soumettre un Article"),
	"navAdmin":       m("Admin Portal", "Portail Admin"),
	"navProfile":     m("Editorial Board", "Comité de Rédaction"),
	"changeLanguage": m("Change Language", "Changer de langue"),

	// home
	"heroTitle":      m("African Social Sciences Review", "Revue Africaine des Sciences Sociales"),
	"heroSubtitle":   m("A monthly review of social analysis dedicated to exploring social phenomena across the African continent.", "Une revue mensuelle d’analyse sociale qui explore les phénomènes sociaux en Afrique."),
	"heroCta":        m("Read Current Edition", "Lire l'Édition Actuelle"),
	"latestArticles": m("In This Issue", "Dans Cette Édition"),
	"viewAll":        m("View Archives", "Voir les Archives"),

	// catalog
	"journalArchives":   m("Journal Archives", "Archives de la Revue"),
	"archivesDesc":      m("Browse past editions and monthly issues of the African Social Sciences Review.", "Parcourez les éditions passées et les numéros mensuels de la Revue Africaine des Sciences Sociales."),
	"searchPlaceholder": m("Search archives...", "Rechercher dans les archives..."),
	"filterAll":         m("All", "Tous"),
	"filterCategory":    m("Category", "Catégorie"),
	"filterMonth":       m("Month", "Mois"),
	"filterApply":       m("Filter", "Filtrer"),
	"volumeEdition":     m("Volume / Edition", "Volume / Édition"),
	"read":              m("Read", "Lire"),
	"downloadBtn":       m("Download PDF", "Télécharger PDF"),
	"noResults":         m("No articles found matching your criteria.", "Aucun article trouvé correspondant à vos critères."),
	"byAuthor":          m("By %s", "Par %s"),

	// preview
	"previewUnavailable": m("Preview unavailable", "Aperçu indisponible"),
	"previewLoading":     m("Loading preview...", "Chargement de l'aperçu..."),
	"noDocument":         m("No document attached", "Aucun document joint"),
	"pageCount":          m("%d pages", "%d pages"),
	"openViewer":         m("Open full view", "Ouvrir en plein écran"),
	"closeViewer":        m("Close", "Fermer"),

	// editorial board
	"yearsExp":       m("Years Exp.", "Ans d'Exp."),
	"aboutMe":        m("About Me", "À propos de moi"),
	"areasExpertise": m("Areas of Expertise", "Domaines d'expertise"),
	"credentials":    m("Credentials", "Titres et Certifications"),
	"contactTitle":   m("Contact Secretariat", "Contacter le Secrétariat"),

	// submission
	"submitHeroTitle":    m("Call for Papers", "Appel à Contributions"),
	"submitHeroSubtitle": m("Permanent call for monthly issues. Submit your research today.", "Appel permanent pour les numéros mensuels. Soumettez votre recherche aujourd'hui."),
	"submitName":         m("Author / Researcher", "Auteur / Chercheur"),
	"submitContact":      m("Institutional Email", "Email Institutionnel"),
	"submitTopic":        m("Paper Title", "Titre de l'Article"),
	"submitBtn":          m("Proceed to Email", "Continuer vers l'Email"),
	"submitNote":         m("Note: Submissions must be in Word format. Clicking proceed will open your email client.", "Note : Les soumissions doivent être au format Word. Cliquer sur continuer ouvrira votre messagerie."),
	"sendTo":             m("Send to:", "Envoyer à :"),
	"submitMissing":      m("Please fill in your name and the paper title.", "Veuillez indiquer votre nom et le titre de l'article."),

	// admin
	"adminDashboard":    m("Editorial Dashboard", "Tableau de Bord Éditorial"),
	"email":             m("Email", "Email"),
	"accessCode":        m("Access Code", "Code d'Accès"),
	"login":             m("Login", "Connexion"),
	"logout":            m("Logout", "Déconnexion"),
	"cancel":            m("Cancel", "Annuler"),
	"incorrectPass":     m("Incorrect password", "Mot de passe incorrect"),
	"invalidCreds":      m("Invalid credentials", "Identifiants invalides"),
	"welcomeAdmin":      m("Welcome back to the Editorial workspace.", "Bienvenue dans l'espace éditorial."),
	"papersPublished":   m("Papers Published", "Articles Publiés"),
	"pendingReview":     m("Pending Review", "En Attente de Révision"),
	"inLibrary":         m("In Library", "Dans la Bibliothèque"),
	"uploadNew":         m("Upload New Document", "Télécharger Nouveau Document"),
	"editDocument":      m("Edit Document", "Modifier le Document"),
	"uploadSuccessMsg":  m("Document Updated Successfully!", "Document Mis à Jour avec Succès !"),
	"deleteSuccessMsg":  m("Document deleted.", "Document supprimé."),
	"enterAuthor":       m("Enter author name", "Entrez le nom de l'auteur"),
	"enterTitle":        m("Enter article title", "Entrez le titre de l'article"),
	"titleEN":           m("Title (English)", "Titre (anglais)"),
	"titleFR":           m("Title (French)", "Titre (français)"),
	"excerptEN":         m("Abstract (English)", "Résumé (anglais)"),
	"excerptFR":         m("Abstract (French)", "Résumé (français)"),
	"author":            m("Author", "Auteur"),
	"status":            m("Status", "Statut"),
	"category":          m("Category", "Catégorie"),
	"datePublished":     m("Date Published", "Date de Publication"),
	"uploadPdf":         m("Upload PDF", "Télécharger PDF"),
	"publishLib":        m("Publish to Library", "Publier dans la Bibliothèque"),
	"backToSite":        m("Back to Site", "Retour au Site"),
	"adminTableTitle":   m("Title", "Titre"),
	"adminTableEdition": m("Edition", "Édition"),
	"adminTableDate":    m("Date", "Date"),
	"adminTableStatus":  m("Status", "Statut"),
	"adminTableActions": m("Actions", "Actions"),
	"adminDelete":       m("Delete", "Supprimer"),
	"adminEdit":         m("Edit", "Modifier"),
	"adminEmpty":        m("No reviews found.", "Aucune revue trouvée."),
	"confirmDelete":     m("Delete this document permanently?", "Supprimer définitivement ce document ?"),
	"suggestFromURL":    m("Prefill from source URL", "Préremplir depuis une URL source"),
	"suggestFailed":     m("Could not fetch a suggestion from that URL.", "Impossible d'obtenir une suggestion depuis cette URL."),

	"status.published": m("Published", "Publié"),
	"status.pending":   m("Pending", "En attente"),
	"status.draft":     m("Draft", "Brouillon"),
	"status.rejected":  m("Rejected", "Rejeté"),

	// errors
	"err.titleRequired":  m("An English title is required.", "Un titre en anglais est requis."),
	"err.authorRequired": m("An author is required.", "Un auteur est requis."),
	"err.dateInvalid":    m("Date must be in YYYY-MM-DD format.", "La date doit être au format AAAA-MM-JJ."),
	"err.statusInvalid":  m("Unknown status.", "Statut inconnu."),
	"err.pdfOnly":        m("Only PDF documents can be attached.", "Seuls les documents PDF peuvent être joints."),
	"err.pdfEmpty":       m("The attached file is empty.", "Le fichier joint est vide."),
	"err.pdfTooLarge":    m("The attached file is too large.", "Le fichier joint est trop volumineux."),
	"err.upload":         m("The document could not be uploaded. Please try again.", "Le document n'a pas pu être téléversé. Veuillez réessayer."),
	"err.remoteWrite":    m("The change could not be saved. Please try again.", "La modification n'a pas pu être enregistrée. Veuillez réessayer."),
	"err.notFound":       m("Article not found.", "Article introuvable."),
	"err.internal":       m("Something went wrong.", "Une erreur est survenue."),
}
