// FILE: launchconf/launch/spec.go
package launch

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ryftlabs/launchconf"
)

// TrainingSpec is the resolved configuration shape a training entrypoint
// consumes. The resolution engine never interprets these fields; the
// struct exists so consumers get typed access and so SpecSchema can be
// derived from one source of truth. Field names follow the conventional
// launch layout: data, algorithm, worker, trainer.
type TrainingSpec struct {
	Data      DataSpec      `yaml:"data"`
	Algorithm AlgorithmSpec `yaml:"algorithm"`
	Worker    WorkerSpec    `yaml:"worker"`
	Trainer   TrainerSpec   `yaml:"trainer"`
}

// DataSpec describes dataset sources and tokenization limits.
type DataSpec struct {
	TrainFiles        []string `yaml:"train_files"`
	ValFiles          []string `yaml:"val_files"`
	PromptKey         string   `yaml:"prompt_key"`
	AnswerKey         string   `yaml:"answer_key"`
	ImageKey          string   `yaml:"image_key"`
	SystemPrompt      string   `yaml:"system_prompt"`
	MaxPromptLength   int      `yaml:"max_prompt_length"`
	MaxResponseLength int      `yaml:"max_response_length"`
	RolloutBatchSize  int      `yaml:"rollout_batch_size"`
	ValBatchSize      int      `yaml:"val_batch_size"`
	Shuffle           bool     `yaml:"shuffle"`
	Seed              int      `yaml:"seed"`
	MinPixels         int      `yaml:"min_pixels"`
	MaxPixels         int      `yaml:"max_pixels"`
}

// AlgorithmSpec selects the advantage estimator and KL handling.
type AlgorithmSpec struct {
	AdvEstimator string  `yaml:"adv_estimator"`
	DisableKL    bool    `yaml:"disable_kl"`
	UseKLLoss    bool    `yaml:"use_kl_loss"`
	KLPenalty    string  `yaml:"kl_penalty"`
	KLCoef       float64 `yaml:"kl_coef"`
}

// WorkerSpec groups the per-role worker configurations.
type WorkerSpec struct {
	Actor   ActorSpec   `yaml:"actor"`
	Rollout RolloutSpec `yaml:"rollout"`
	Ref     RefSpec     `yaml:"ref"`
	Reward  RewardSpec  `yaml:"reward"`
	Critic  CriticSpec  `yaml:"critic"`
}

// ModelSpec points at model weights and toggles memory behaviors.
type ModelSpec struct {
	ModelPath                   string `yaml:"model_path"`
	TokenizerPath               string `yaml:"tokenizer_path"`
	EnableGradientCheckpointing bool   `yaml:"enable_gradient_checkpointing"`
	TrustRemoteCode             bool   `yaml:"trust_remote_code"`
	FreezeVisionTower           bool   `yaml:"freeze_vision_tower"`
}

// OptimSpec carries optimizer hyperparameters.
type OptimSpec struct {
	LR            float64 `yaml:"lr"`
	WeightDecay   float64 `yaml:"weight_decay"`
	Strategy      string  `yaml:"strategy"`
	LRWarmupRatio float64 `yaml:"lr_warmup_ratio"`
}

// FSDPSpec controls sharding of a worker's parameters.
type FSDPSpec struct {
	EnableFullShard  bool   `yaml:"enable_full_shard"`
	EnableCPUOffload bool   `yaml:"enable_cpu_offload"`
	EnableRank0Init  bool   `yaml:"enable_rank0_init"`
	TorchDtype       string `yaml:"torch_dtype"`
}

// OffloadSpec moves params and optimizer state off-device between steps.
type OffloadSpec struct {
	OffloadParams    bool `yaml:"offload_params"`
	OffloadOptimizer bool `yaml:"offload_optimizer"`
}

// ActorSpec configures the policy worker.
type ActorSpec struct {
	GlobalBatchSize                  int         `yaml:"global_batch_size"`
	MicroBatchSizePerDeviceForUpdate int         `yaml:"micro_batch_size_per_device_for_update"`
	MicroBatchSizePerDeviceForExp    int         `yaml:"micro_batch_size_per_device_for_experience"`
	MaxGradNorm                      float64     `yaml:"max_grad_norm"`
	PaddingFree                      bool        `yaml:"padding_free"`
	UlyssesSequenceParallelSize      int         `yaml:"ulysses_sequence_parallel_size"`
	Model                            ModelSpec   `yaml:"model"`
	Optim                            OptimSpec   `yaml:"optim"`
	FSDP                             FSDPSpec    `yaml:"fsdp"`
	Offload                          OffloadSpec `yaml:"offload"`
}

// RolloutSpec configures the generation engine.
type RolloutSpec struct {
	Name                 string  `yaml:"name"`
	N                    int     `yaml:"n"`
	Temperature          float64 `yaml:"temperature"`
	TopP                 float64 `yaml:"top_p"`
	GPUMemoryUtilization float64 `yaml:"gpu_memory_utilization"`
	EnforceEager         bool    `yaml:"enforce_eager"`
	EnableChunkedPrefill bool    `yaml:"enable_chunked_prefill"`
	TensorParallelSize   int     `yaml:"tensor_parallel_size"`
	LimitImages          int     `yaml:"limit_images"`
	// ValOverride replaces sampling parameters during validation passes.
	ValOverride map[string]any `yaml:"val_override_config"`
}

// RefSpec configures the frozen reference policy.
type RefSpec struct {
	FSDP    FSDPSpec    `yaml:"fsdp"`
	Offload OffloadSpec `yaml:"offload"`
}

// RewardSpec selects the reward scorer. RewardFunction names either a
// registered in-process scorer or an external scorer path the trainer
// loads itself; SkipSpecialTokens applies when detokenizing for scoring.
type RewardSpec struct {
	RewardType        string `yaml:"reward_type"`
	RewardFunction    string `yaml:"reward_function"`
	SkipSpecialTokens bool   `yaml:"skip_special_tokens"`
}

// CriticSpec configures the value-function worker used by gae.
type CriticSpec struct {
	GlobalBatchSize                  int       `yaml:"global_batch_size"`
	MicroBatchSizePerDeviceForUpdate int       `yaml:"micro_batch_size_per_device_for_update"`
	Model                            ModelSpec `yaml:"model"`
	Optim                            OptimSpec `yaml:"optim"`
}

// TrainerSpec carries run topology, checkpointing, and reporting.
type TrainerSpec struct {
	TotalEpochs        int      `yaml:"total_epochs"`
	MaxSteps           int      `yaml:"max_steps"`
	ProjectName        string   `yaml:"project_name"`
	ExperimentName     string   `yaml:"experiment_name"`
	Logger             []string `yaml:"logger"`
	NNodes             int      `yaml:"nnodes"`
	NGPUsPerNode       int      `yaml:"n_gpus_per_node"`
	CriticWarmup       int      `yaml:"critic_warmup"`
	ValFreq            int      `yaml:"val_freq"`
	ValBeforeTrain     bool     `yaml:"val_before_train"`
	ValOnly            bool     `yaml:"val_only"`
	SaveFreq           int      `yaml:"save_freq"`
	SaveLimit          int      `yaml:"save_limit"`
	SaveCheckpointPath string   `yaml:"save_checkpoint_path"`
	LoadCheckpointPath string   `yaml:"load_checkpoint_path"`
}

// DefaultSpec returns a runnable single-node baseline: grpo with a vllm
// rollout engine, conservative batch sizes, function-based rewards.
// Every value can be overridden from the command line.
func DefaultSpec() TrainingSpec {
	return TrainingSpec{
		Data: DataSpec{
			TrainFiles:        []string{"data/train.parquet"},
			ValFiles:          []string{"data/val.parquet"},
			PromptKey:         "prompt",
			AnswerKey:         "answer",
			ImageKey:          "images",
			MaxPromptLength:   2048,
			MaxResponseLength: 2048,
			RolloutBatchSize:  512,
			ValBatchSize:      1024,
			Shuffle:           true,
			Seed:              1,
		},
		Algorithm: AlgorithmSpec{
			AdvEstimator: "grpo",
			UseKLLoss:    true,
			KLPenalty:    "low_var_kl",
			KLCoef:       1.0e-2,
		},
		Worker: WorkerSpec{
			Actor: ActorSpec{
				GlobalBatchSize:                  128,
				MicroBatchSizePerDeviceForUpdate: 4,
				MicroBatchSizePerDeviceForExp:    16,
				MaxGradNorm:                      1.0,
				PaddingFree:                      true,
				UlyssesSequenceParallelSize:      1,
				Model: ModelSpec{
					ModelPath:                   "Qwen/Qwen2.5-7B-Instruct",
					EnableGradientCheckpointing: true,
					TrustRemoteCode:             true,
				},
				Optim: OptimSpec{
					LR:          1.0e-6,
					WeightDecay: 1.0e-2,
					Strategy:    "adamw",
				},
				FSDP: FSDPSpec{
					EnableFullShard: true,
					EnableRank0Init: true,
					TorchDtype:      "bf16",
				},
				Offload: OffloadSpec{
					OffloadParams:    true,
					OffloadOptimizer: true,
				},
			},
			Rollout: RolloutSpec{
				Name:                 "vllm",
				N:                    5,
				Temperature:          1.0,
				TopP:                 0.99,
				GPUMemoryUtilization: 0.6,
				TensorParallelSize:   2,
			},
			Ref: RefSpec{
				FSDP: FSDPSpec{
					EnableFullShard:  true,
					EnableCPUOffload: true,
					EnableRank0Init:  true,
				},
			},
			Reward: RewardSpec{
				RewardType:        "function",
				RewardFunction:    "exact_match",
				SkipSpecialTokens: true,
			},
			Critic: CriticSpec{
				GlobalBatchSize:                  128,
				MicroBatchSizePerDeviceForUpdate: 4,
				Optim: OptimSpec{
					LR:          1.0e-5,
					WeightDecay: 1.0e-2,
					Strategy:    "adamw",
				},
			},
		},
		Trainer: TrainerSpec{
			TotalEpochs:    15,
			ProjectName:    "launchconf",
			ExperimentName: "baseline",
			Logger:         []string{"console"},
			NNodes:         1,
			NGPUsPerNode:   8,
			ValFreq:        5,
			ValBeforeTrain: true,
			SaveFreq:       5,
			SaveLimit:      3,
		},
	}
}

// DefaultTree renders DefaultSpec as a config tree, the base layer for
// resolutions that have no document of their own. It panics only if the
// spec struct itself stops marshaling, which is a programming error.
func DefaultTree() *launchconf.Node {
	data, err := yaml.Marshal(DefaultSpec())
	if err != nil {
		panic(fmt.Sprintf("launch: marshal default spec: %v", err))
	}
	node, err := launchconf.ParseDocument(data, launchconf.FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("launch: parse default spec: %v", err))
	}
	return node
}

// SpecSchema derives the validation schema from TrainingSpec, then
// tightens the fields a launch cannot proceed without and pins the closed
// vocabularies. Estimator and engine names follow what the trainer side
// actually dispatches on.
func SpecSchema() *launchconf.Schema {
	s, err := launchconf.SchemaFromStruct("", TrainingSpec{})
	if err != nil {
		panic(fmt.Sprintf("launch: derive spec schema: %v", err))
	}
	s.Require("trainer.n_gpus_per_node", launchconf.TypeInt)
	s.Require("trainer.nnodes", launchconf.TypeInt)
	s.Require("worker.actor.model.model_path", launchconf.TypeString)
	s.Enum("algorithm.adv_estimator", launchconf.TypeString,
		"gae", "grpo", "reinforce_plus_plus")
	s.Enum("worker.rollout.name", launchconf.TypeString, "vllm", "sglang")
	s.Enum("worker.reward.reward_type", launchconf.TypeString, "function", "model")
	s.Enum("worker.actor.optim.strategy", launchconf.TypeString, "adamw", "adamw_bf16")
	return s
}
