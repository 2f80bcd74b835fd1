package knowledge

import "strings"

// 常用 Lua 脚本模板，按名称检索。规划器在生成脚本任务时
// 优先使用这些经过验证的模板，而不是临时生成代码。
var luaTemplates = map[string]string{
	"checkpoint_system": `-- Checkpoint System for Obby Games
local Players = game:GetService("Players")
local checkpoints = workspace:WaitForChild("Checkpoints"):GetChildren()

-- Sort checkpoints by name
table.sort(checkpoints, function(a, b)
    return tonumber(a.Name:match("%d+")) < tonumber(b.Name:match("%d+"))
end)

local playerCheckpoints = {}

Players.PlayerAdded:Connect(function(player)
    playerCheckpoints[player.UserId] = 1

    player.CharacterAdded:Connect(function(character)
        local humanoid = character:WaitForChild("Humanoid")
        local hrp = character:WaitForChild("HumanoidRootPart")

        -- Teleport to last checkpoint
        local checkpointIndex = playerCheckpoints[player.UserId] or 1
        if checkpoints[checkpointIndex] then
            hrp.CFrame = checkpoints[checkpointIndex].CFrame + Vector3.new(0, 3, 0)
        end

        -- Death handling
        humanoid.Died:Connect(function()
            task.wait(2)
            player:LoadCharacter()
        end)
    end)
end)

-- Checkpoint touch detection
for i, checkpoint in ipairs(checkpoints) do
    checkpoint.Touched:Connect(function(hit)
        local character = hit.Parent
        local player = Players:GetPlayerFromCharacter(character)

        if player and playerCheckpoints[player.UserId] == i then
            playerCheckpoints[player.UserId] = i + 1
            checkpoint.BrickColor = BrickColor.new("Bright green")
            checkpoint.Material = Enum.Material.Neon
        end
    end)
end`,

	"leaderstats": `game.Players.PlayerAdded:Connect(function(player)
    local leaderstats = Instance.new("Folder")
    leaderstats.Name = "leaderstats"
    leaderstats.Parent = player

    local stat = Instance.new("IntValue")
    stat.Name = "Points"
    stat.Value = 0
    stat.Parent = leaderstats
end)`,

	"kill_brick": `-- Kill brick that respawns player
local killBrick = script.Parent

killBrick.Touched:Connect(function(hit)
    local humanoid = hit.Parent:FindFirstChild("Humanoid")
    if humanoid then
        humanoid.Health = 0
    end
end)`,

	"module_script": `local Module = {}

function Module.Run(...)
    -- Implementation
end

return Module`,
}

// Template 返回指定名称的 Lua 模板。
func Template(name string) (string, bool) {
	template, ok := luaTemplates[strings.TrimSpace(name)]
	return template, ok
}

// TemplateNames 返回全部模板名称，便于生成提示词。
func TemplateNames() []string {
	names := make([]string, 0, len(luaTemplates))
	for name := range luaTemplates {
		names = append(names, name)
	}
	return names
}
