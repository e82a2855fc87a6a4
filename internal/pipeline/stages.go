package pipeline

import "git.home.luguber.info/inful/docweaver/internal/errors"

// Stage identifies one step of the fixed run sequence.
type Stage string

const (
	StageSetupPlatforms Stage = "setup-platforms"
	StageInitPlugins    Stage = "init-plugins"
	StageTranslate      Stage = "translate"
	StageMerge          Stage = "merge"
	StageTransformModel Stage = "transform-model"
	StageBuildPages     Stage = "build-pages"
	StageTransformPages Stage = "transform-pages"
	StageRender         Stage = "render"
)

// StageOrder returns the fixed execution order. Progress is reported once
// per stage in exactly this order, so a failed run's last progress line
// names the stage that aborted it.
func StageOrder() []Stage {
	return []Stage{
		StageSetupPlatforms,
		StageInitPlugins,
		StageTranslate,
		StageMerge,
		StageTransformModel,
		StageBuildPages,
		StageTransformPages,
		StageRender,
	}
}

// progressMessage is the human-readable progress line for a stage.
func progressMessage(s Stage) string {
	switch s {
	case StageSetupPlatforms:
		return "Setting up analysis platforms"
	case StageInitPlugins:
		return "Initializing plugins"
	case StageTranslate:
		return "Translating sources"
	case StageMerge:
		return "Merging documentation models"
	case StageTransformModel:
		return "Transforming documentation model"
	case StageBuildPages:
		return "Creating pages"
	case StageTransformPages:
		return "Transforming pages"
	case StageRender:
		return "Rendering"
	default:
		return string(s)
	}
}

// stageCategory maps a stage to the error category its failures carry.
func stageCategory(s Stage) errors.ErrorCategory {
	switch s {
	case StageSetupPlatforms:
		return errors.CategoryAnalysis
	case StageInitPlugins:
		return errors.CategoryConfig
	case StageTranslate:
		return errors.CategoryTranslate
	case StageMerge:
		return errors.CategoryMerge
	case StageTransformModel:
		return errors.CategoryTransform
	case StageBuildPages, StageTransformPages:
		return errors.CategoryPages
	case StageRender:
		return errors.CategoryRender
	default:
		return errors.CategoryInternal
	}
}
