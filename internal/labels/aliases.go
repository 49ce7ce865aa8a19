package labels

import (
	"os"

	"gopkg.in/yaml.v3"

	"document-reconciliation-service/internal/models"
	apperrors "document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// AliasFile is the YAML layout accepted by LoadAliases:
//
//	aliases:
//	  rent statement: rental
//	keywords:
//	  utility: [sewerage, "indah water"]
type AliasFile struct {
	Aliases  map[string]string   `yaml:"aliases"`
	Keywords map[string][]string `yaml:"keywords"`
}

// LoadAliases merges deployment-specific aliases and keywords into n.
// Unknown target labels are rejected so a typo cannot silently route
// documents to unknown.
func (n *Normalizer) LoadAliases(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}

	var file AliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.ParseError(apperrors.CodeInvalidFormat, path, 0, "aliases file is not valid YAML", err)
	}

	for alias, target := range file.Aliases {
		label := models.CanonicalLabel(target)
		if !n.AddAlias(alias, label) {
			return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "aliases."+alias, target, nil)
		}
	}

	for target, keywords := range file.Keywords {
		if !n.AddKeywords(models.CanonicalLabel(target), keywords...) {
			return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "keywords."+target, keywords, nil)
		}
	}

	logger.WithComponent("labels").WithFields(logger.Fields{
		"file":     path,
		"aliases":  len(file.Aliases),
		"keywords": len(file.Keywords),
	}).Debug("Loaded label overrides")

	return nil
}
